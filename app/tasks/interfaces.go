package tasks

// TaskSchedulerInterface is the scheduling surface used by the main
// application and the admin API: queue management plus worker pool control.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueRefresh() error
}
