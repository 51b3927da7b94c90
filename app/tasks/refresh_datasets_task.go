package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openlmia/lmiahub/app/catalog"
	"github.com/openlmia/lmiahub/app/fetcher"
	"github.com/openlmia/lmiahub/app/ingest"
	"github.com/openlmia/lmiahub/app/sources"
)

// RefreshDatasetsTask runs the full pipeline for every configured source:
// resolve catalog resources, download them, ingest the local files.
type RefreshDatasetsTask struct {
	Task
	sources  []sources.Source
	catalog  *catalog.Client
	fetcher  *fetcher.Fetcher
	ingestor *ingest.Ingestor
	dataDir  string
}

func NewRefreshDatasetsTask(srcs []sources.Source, catalogClient *catalog.Client,
	f *fetcher.Fetcher, ingestor *ingest.Ingestor, dataDir string) *RefreshDatasetsTask {
	return &RefreshDatasetsTask{
		Task:     NewTask(TaskTypeRefreshDatasets),
		sources:  srcs,
		catalog:  catalogClient,
		fetcher:  f,
		ingestor: ingestor,
		dataDir:  dataDir,
	}
}

func (t *RefreshDatasetsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	for _, source := range t.sources {
		resources, err := t.catalog.ResolveResourceURLs(ctx, source)
		if err != nil {
			return fmt.Errorf("failed to resolve resources for source %q: %w", source.Name, err)
		}

		result, err := t.fetcher.FetchAll(ctx, resources, t.dataDir)
		if err != nil {
			return fmt.Errorf("failed to download resources for source %q: %w", source.Name, err)
		}

		slog.Info("Source downloaded", "source", source.Name,
			"downloaded", result.Downloaded, "skipped", result.Skipped, "failed", result.Failed)
	}

	stats, err := t.ingestor.IngestAll(ctx, t.dataDir)
	if err != nil {
		return fmt.Errorf("failed to ingest local files: %w", err)
	}

	slog.Info("Task completed",
		"type", "RefreshDatasets",
		"duration", t.GetDuration(),
		"files", stats.FilesProcessed,
		"parsed", stats.RecordsParsed,
		"saved", stats.RecordsSaved,
		"errored", stats.FilesWithErrors)

	return nil
}
