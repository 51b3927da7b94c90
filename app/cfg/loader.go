package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./lmiahub.db" description:"Path to the SQLite database file"`

	// Ingestion configuration
	DataDir          string `long:"data-dir" env:"DATA_DIR" default:"./data/datasets" description:"Directory for downloaded dataset files"`
	SourcesFile      string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file describing catalog sources"`
	FetchConcurrency int    `long:"fetch-concurrency" env:"FETCH_CONCURRENCY" default:"10" description:"Number of parallel dataset downloads"`
	FetchQueueSize   int    `long:"fetch-queue-size" env:"FETCH_QUEUE_SIZE" default:"100" description:"Download queue capacity"`
	RetryAttempts    int    `long:"retry-attempts" env:"RETRY_ATTEMPTS" default:"4" description:"HTTP retry attempts for catalog and downloads"`
	RetryBaseDelayMs int    `long:"retry-base-delay-ms" env:"RETRY_BASE_DELAY_MS" default:"500" description:"Base retry delay in milliseconds (multiplied by 1.5 per retry)"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for ingestion tasks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"86400" description:"Dataset refresh interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"LMIA Hub/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/Toronto)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		DataDir:           raw.DataDir,
		SourcesFile:       raw.SourcesFile,
		FetchConcurrency:  raw.FetchConcurrency,
		FetchQueueSize:    raw.FetchQueueSize,
		RetryAttempts:     raw.RetryAttempts,
		RetryBaseDelayMs:  raw.RetryBaseDelayMs,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func (c *Cfg) RetryBaseDelay() time.Duration {
	if c.RetryBaseDelayMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
