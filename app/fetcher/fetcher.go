package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openlmia/lmiahub/app/catalog"
)

// Result aggregates download outcomes for one FetchAll call. Every
// dispatched resource is accounted for in exactly one counter.
type Result struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Fetcher downloads catalog resources to a local directory using a bounded
// worker pool. Each download retries independently; a file that is already
// present locally is skipped without a network call.
type Fetcher struct {
	httpClient  *http.Client
	userAgent   string
	concurrency int
	queueSize   int
	maxAttempts int
	baseDelay   time.Duration
}

type Options struct {
	HTTPClient  *http.Client
	UserAgent   string
	Concurrency int
	QueueSize   int
	MaxAttempts int
	BaseDelay   time.Duration
}

func New(opts Options) *Fetcher {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 4
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	return &Fetcher{
		httpClient:  httpClient,
		userAgent:   opts.UserAgent,
		concurrency: concurrency,
		queueSize:   queueSize,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// FetchAll downloads every resource into dir and blocks until all
// dispatched downloads have resolved. A single failed download is recorded
// and does not abort the batch. When the job queue is full the resource is
// counted as failed rather than blocking the producer.
func (f *Fetcher) FetchAll(ctx context.Context, resources []catalog.Resource, dir string) (Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create download directory: %w", err)
	}

	var downloaded, skipped, failed atomic.Int64

	jobs := make(chan catalog.Resource, f.queueSize)
	var wg sync.WaitGroup

	for i := 0; i < f.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for resource := range jobs {
				switch f.fetchOne(ctx, resource, dir) {
				case outcomeDownloaded:
					downloaded.Add(1)
				case outcomeSkipped:
					skipped.Add(1)
				case outcomeFailed:
					failed.Add(1)
				}
			}
		}()
	}

	for _, resource := range resources {
		select {
		case jobs <- resource:
		default:
			slog.Warn("Download queue full, recording failure", "url", resource.URL)
			failed.Add(1)
		}
	}
	close(jobs)
	wg.Wait()

	result := Result{
		Downloaded: int(downloaded.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}
	slog.Info("Download batch completed", "downloaded", result.Downloaded,
		"skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

type outcome int

const (
	outcomeDownloaded outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (f *Fetcher) fetchOne(ctx context.Context, resource catalog.Resource, dir string) outcome {
	name := FileNameFromURL(resource.URL)
	if name == "" {
		slog.Warn("Cannot derive file name from URL", "url", resource.URL)
		return outcomeFailed
	}

	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); err == nil {
		slog.Debug("File already present, skipping download", "file", name)
		return outcomeSkipped
	}

	delay := f.baseDelay
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.download(ctx, resource.URL, dest); err == nil {
			slog.Debug("Downloaded file", "file", name, "attempt", attempt)
			return outcomeDownloaded
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			break
		}
		if attempt == f.maxAttempts {
			break
		}

		slog.Debug("Download failed, retrying", "file", name, "attempt", attempt,
			"delay", delay.String(), "error", lastErr)

		select {
		case <-ctx.Done():
			return outcomeFailed
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * 1.5)
	}

	slog.Warn("Download failed", "file", name, "url", resource.URL,
		"attempts", f.maxAttempts, "error", lastErr)
	return outcomeFailed
}

func (f *Fetcher) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// FileNameFromURL derives the local file name: the last path segment of the
// URL with any query string dropped.
func FileNameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
