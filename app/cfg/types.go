package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Ingestion configuration
	DataDir          string
	SourcesFile      string
	FetchConcurrency int
	FetchQueueSize   int
	RetryAttempts    int
	RetryBaseDelayMs int

	// Application configuration
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
