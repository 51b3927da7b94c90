package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openlmia/lmiahub/app/database"
	"github.com/openlmia/lmiahub/app/dataset"
)

// Stats aggregates one IngestAll run.
type Stats struct {
	FilesProcessed  int
	RecordsParsed   int
	RecordsSaved    int
	FilesWithErrors int
}

// Ingestor drives per-file extraction, duplicate checking and transactional
// persistence. Files are processed sequentially: the per-file batch is the
// unit of atomicity, and single-threaded persistence keeps that simple.
type Ingestor struct {
	repo      database.RecordRepository
	extractor *dataset.Extractor
}

func NewIngestor(repo database.RecordRepository, extractor *dataset.Extractor) *Ingestor {
	return &Ingestor{repo: repo, extractor: extractor}
}

// IngestAll processes every supported file in dir. One file's failure never
// aborts the batch; it is counted and processing moves on.
func (in *Ingestor) IngestAll(ctx context.Context, dir string) (Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Data directory does not exist", "dir", dir)
			return stats, nil
		}
		return stats, fmt.Errorf("failed to list data directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".csv" && ext != ".xlsx" && ext != ".xls" {
			slog.Debug("Skipping unsupported file type", "file", name)
			continue
		}

		parsed, saved, err := in.ingestFile(filepath.Join(dir, name), name, ext)
		stats.FilesProcessed++
		stats.RecordsParsed += parsed
		stats.RecordsSaved += saved
		if err != nil {
			stats.FilesWithErrors++
			slog.Error("Failed to persist file batch", "file", name, "error", err)
			continue
		}
		slog.Info("Processed file", "file", name, "parsed", parsed, "saved", saved)
	}

	slog.Info("Ingest completed", "files", stats.FilesProcessed,
		"parsed", stats.RecordsParsed, "saved", stats.RecordsSaved,
		"errored", stats.FilesWithErrors)
	return stats, nil
}

// ingestFile extracts all records from one file, filters out duplicates and
// persists the remainder as a single transaction. Extraction-side problems
// (unreadable file, no header) skip the file with a warning and are not
// counted as errors; only a persistence failure is.
func (in *Ingestor) ingestFile(path, name, ext string) (parsed, saved int, err error) {
	var lines []string
	var readErr error
	if ext == ".csv" {
		lines, readErr = dataset.ReadLines(path)
	} else {
		lines, readErr = dataset.TranscodeXLSX(path)
	}
	if readErr != nil {
		slog.Warn("Could not read file, skipping", "file", name, "error", readErr)
		return 0, 0, nil
	}

	structure := dataset.DetectStructure(lines)
	if structure == nil {
		slog.Warn("Could not detect structure of file, skipping", "file", name)
		return 0, 0, nil
	}
	slog.Debug("Detected file structure", "file", name,
		"header_row", structure.HeaderRowIndex, "province", structure.Province)

	records := in.extractRecords(lines, structure, name)
	parsed = len(records)

	var toSave []dataset.Record
	for _, record := range records {
		duplicate, err := in.repo.ExistsByIdentity(record.Employer, record.NocCode, record.DecisionDate, record.SourceFile)
		if err != nil {
			slog.Warn("Duplicate check failed, skipping record", "file", name,
				"employer", record.Employer, "error", err)
			continue
		}
		if !duplicate {
			toSave = append(toSave, record)
		}
	}

	if err := in.repo.SaveBatch(toSave); err != nil {
		return parsed, 0, err
	}
	return parsed, len(toSave), nil
}

// extractRecords folds the extractor over the data lines, carrying the
// active columns and ambient province in explicit state. A panic while
// extracting one line skips that line only.
func (in *Ingestor) extractRecords(lines []string, structure *dataset.FileStructure, sourceFile string) []dataset.Record {
	state := in.extractor.NewState(structure)

	var records []dataset.Record
	for i := structure.HeaderRowIndex + 1; i < len(lines); i++ {
		record := in.extractLineSafe(lines[i], &state, sourceFile, i+1)
		if record != nil {
			records = append(records, *record)
		}
	}
	return records
}

func (in *Ingestor) extractLineSafe(line string, state *dataset.State, sourceFile string, lineNo int) (record *dataset.Record) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Error extracting line, skipping", "file", sourceFile, "line", lineNo, "panic", r)
			record = nil
		}
	}()
	return in.extractor.ExtractLine(line, state, sourceFile)
}
