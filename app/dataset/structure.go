package dataset

import (
	"encoding/csv"
	"strings"
)

// structureScanWindow bounds how many non-empty lines are examined when
// looking for the header row.
const structureScanWindow = 15

// DetectStructure scans the first lines of a raw tabular file for a header
// row and, opportunistically, a province marker on the line just above it.
// Returns nil when no header candidate is found, which means the file is
// unparseable and should be skipped.
func DetectStructure(lines []string) *FileStructure {
	scanned := 0
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		scanned++
		if scanned > structureScanWindow {
			break
		}

		if !IsHeaderLine(line) {
			continue
		}

		columns, err := SplitLine(line)
		if err != nil {
			continue
		}

		structure := &FileStructure{
			HeaderRowIndex: i,
			Columns:        columns,
		}

		if i > 0 {
			structure.Province = detectProvinceLine(lines[i-1])
		}

		return structure
	}

	return nil
}

// IsHeaderLine reports whether a line looks like a column header row.
func IsHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "employer") {
		return false
	}
	return strings.Contains(lower, "address") || strings.Contains(lower, "noc") ||
		strings.Contains(lower, "province") || strings.Contains(lower, "positions") ||
		strings.Contains(lower, "stream")
}

// SplitLine parses a single CSV line into trimmed fields.
func SplitLine(line string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	fields, err := reader.Read()
	if err != nil {
		return nil, err
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}
