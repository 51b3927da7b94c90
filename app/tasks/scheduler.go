package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openlmia/lmiahub/app/catalog"
	"github.com/openlmia/lmiahub/app/cfg"
	"github.com/openlmia/lmiahub/app/database"
	"github.com/openlmia/lmiahub/app/fetcher"
	"github.com/openlmia/lmiahub/app/ingest"
	"github.com/openlmia/lmiahub/app/sources"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler runs ingestion tasks on a bounded worker pool and enqueues a
// periodic dataset refresh. On startup a refresh is enqueued only when the
// store is empty, so a restarted instance does not re-download everything.
type Scheduler struct {
	repo        database.RecordRepository
	sources     []sources.Source
	catalog     *catalog.Client
	fetcher     *fetcher.Fetcher
	ingestor    *ingest.Ingestor
	dataDir     string
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(appCfg *cfg.Cfg, repo database.RecordRepository, srcs []sources.Source,
	catalogClient *catalog.Client, f *fetcher.Fetcher, ingestor *ingest.Ingestor) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		repo:        repo,
		sources:     srcs,
		catalog:     catalogClient,
		fetcher:     f,
		ingestor:    ingestor,
		dataDir:     appCfg.DataDir,
		interval:    time.Duration(appCfg.SchedulerInterval) * time.Second,
		workerCount: appCfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 50),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.EnqueueRefresh(); err != nil {
					slog.Warn("Failed to enqueue scheduled refresh", "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueRefresh queues a full resolve-download-ingest run.
func (s *Scheduler) EnqueueRefresh() error {
	task := NewRefreshDatasetsTask(s.sources, s.catalog, s.fetcher, s.ingestor, s.dataDir)
	return s.EnqueueTask(task)
}

func (s *Scheduler) enqueueStartupTasks() {
	count, err := s.repo.Count()
	if err != nil {
		slog.Warn("Failed to check record count on startup", "error", err)
		return
	}

	if count > 0 {
		slog.Info("Store already contains records, skipping initial load", "count", count)
		return
	}

	slog.Info("Store is empty, enqueueing initial dataset refresh")
	if err := s.EnqueueRefresh(); err != nil {
		slog.Warn("Failed to enqueue initial refresh", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID,
			"type", string(task.GetType()), "id", task.GetID(),
			"retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()),
				"retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(),
				"delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry",
						"type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry",
							"type", string(task.GetType()), "id", task.GetID(),
							"retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()),
				"id", task.GetID(), "retry_count", task.GetRetryCount(),
				"max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
