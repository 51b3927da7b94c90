package dataset

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/openlmia/lmiahub/app/website"
)

// nocPattern accepts 4+ leading digits followed by a separator and the
// occupation title. Runs longer than 6 digits are rejected later; they are
// registry numbers, not NOC codes.
var nocPattern = regexp.MustCompile(`(\d{4,})[\s-]+(.+)`)

// addressPattern matches "Street, City, XX A1A 1A1" shaped addresses.
var addressPattern = regexp.MustCompile(`(.+?),\s*([^,]+),\s*([A-Z]{2})\s+([A-Z]\d[A-Z]\s?\d[A-Z]\d)`)

// postalTailPattern matches a trailing "XX A1A 1A1" province/postal pair.
var postalTailPattern = regexp.MustCompile(`([A-Z]{2})\s+([A-Z]\d[A-Z]\s?\d[A-Z]\d)`)

var quarterPattern = regexp.MustCompile(`(\d{4})[qQ](\d)`)

// Extractor turns raw data lines into canonical records using the column
// layout carried in State.
type Extractor struct {
	website website.Resolver
}

// NewExtractor creates an extractor. The website resolver is optional; nil
// leaves records without a website URL.
func NewExtractor(resolver website.Resolver) *Extractor {
	return &Extractor{website: resolver}
}

// NewState seeds the extraction state from a detected file structure.
func (e *Extractor) NewState(structure *FileStructure) State {
	return State{
		Columns:  structure.Columns,
		Province: structure.Province,
	}
}

// ExtractLine processes one line of a file. Province-marker lines and
// repeated header lines update the state and yield no record; data lines
// yield a record, or nil when unusable (blank employer, too few fields).
func (e *Extractor) ExtractLine(line string, st *State, sourceFile string) *Record {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	if province := detectProvinceLine(line); province != "" {
		slog.Debug("Found province section", "file", sourceFile, "province", province)
		st.Province = province
		return nil
	}

	if IsHeaderLine(line) {
		columns, err := SplitLine(line)
		if err == nil {
			slog.Debug("Updated columns mid-file", "file", sourceFile, "columns", columns)
			st.Columns = columns
		}
		return nil
	}

	values, err := SplitLine(line)
	if err != nil {
		slog.Debug("Unparseable line", "file", sourceFile, "error", err)
		return nil
	}

	employer := fieldValue(values, st.Columns, "Employer")
	if strings.TrimSpace(employer) == "" {
		return nil
	}
	employer = strings.TrimSpace(employer)

	province := fieldValue(values, st.Columns, "Province/Territory", "Province")
	stream := fieldValue(values, st.Columns, "Stream")
	address := fieldValue(values, st.Columns, "Address")
	nocInfo := fieldValue(values, st.Columns,
		"Occupations under NOC 2011", "Occupations under NOC 2021", "Occupations under NOC 2026",
		"NOC 2011", "NOC 2021", "NOC 2026",
		"NOC", "NOC Code", "National Occupational Classification")
	positionsStr := fieldValue(values, st.Columns, "Positions Approved", "Positions", "Positions requested")

	nocCode, nocTitle := ParseNoc(nocInfo)

	city, postalCode, provinceFromAddress := ParseAddress(address)

	// Province precedence: explicit column, then address, then the ambient
	// province from the file, then Unknown.
	if strings.TrimSpace(province) == "" {
		province = provinceFromAddress
	}
	if strings.TrimSpace(province) == "" {
		province = st.Province
	}
	if strings.TrimSpace(province) == "" {
		province = "Unknown"
	}

	if strings.TrimSpace(stream) == "" {
		stream = "Unknown"
	}

	record := &Record{
		Employer:     employer,
		Province:     strings.TrimSpace(province),
		Stream:       strings.TrimSpace(stream),
		City:         city,
		PostalCode:   postalCode,
		NocCode:      nocCode,
		NocTitle:     nocTitle,
		Positions:    ParsePositions(positionsStr),
		Status:       StatusFromFileName(sourceFile),
		DecisionDate: DecisionDateFromFileName(sourceFile),
		SourceFile:   sourceFile,
	}

	if e.website != nil {
		record.WebsiteURL = e.website.ResolveWebsiteURL(employer, city, record.Province)
	}

	return record
}

// fieldValue looks a canonical field up by alias priority: an exact
// case-insensitive column match first, then a substring match for
// NOC-family headers ("Occupations under NOC 2021" matches "NOC").
func fieldValue(values, columns []string, names ...string) string {
	for _, name := range names {
		for i, column := range columns {
			if column == "" || i >= len(values) {
				continue
			}
			if strings.EqualFold(column, name) {
				if v := strings.TrimSpace(values[i]); v != "" {
					return v
				}
				continue
			}
			if strings.Contains(name, "NOC") && strings.Contains(strings.ToLower(column), "noc") {
				if v := strings.TrimSpace(values[i]); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// ParseNoc splits a "code - title" composite. Codes outside 4-6 digits are
// discarded and the default "0000" is returned.
func ParseNoc(nocInfo string) (code, title string) {
	code = "0000"
	nocInfo = strings.TrimSpace(nocInfo)
	if nocInfo == "" {
		return code, ""
	}

	m := nocPattern.FindStringSubmatch(nocInfo)
	if m == nil {
		return code, ""
	}
	if len(m[1]) < 4 || len(m[1]) > 6 {
		slog.Debug("Skipping NOC code with unusual length", "length", len(m[1]), "code", m[1])
		return code, ""
	}
	return m[1], strings.TrimSpace(m[2])
}

// ParseAddress extracts city, postal code and province from a composite
// address field. The primary pattern expects "Street, City, XX PostalCode";
// on mismatch a comma-split fallback takes the second-to-last segment as
// the city and probes the trailing segment for province/postal data.
func ParseAddress(address string) (city, postalCode, province string) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", "", ""
	}

	if m := addressPattern.FindStringSubmatch(address); m != nil {
		city = strings.TrimSpace(m[2])
		province = ProvinceFromAbbreviation(strings.TrimSpace(m[3]))
		postalCode = strings.ReplaceAll(m[4], " ", "")
		return city, postalCode, province
	}

	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return "", "", ""
	}

	city = strings.TrimSpace(parts[len(parts)-2])
	if len(parts) >= 3 {
		lastPart := strings.TrimSpace(parts[len(parts)-1])
		if m := postalTailPattern.FindStringSubmatch(lastPart); m != nil {
			province = ProvinceFromAbbreviation(m[1])
			postalCode = strings.ReplaceAll(m[2], " ", "")
		} else if len(lastPart) == 2 {
			province = ProvinceFromAbbreviation(lastPart)
		}
	}

	return city, postalCode, province
}

// ParsePositions strips everything but digits and the minus sign; absent,
// unparsable or non-positive values default to 1.
func ParsePositions(value string) int {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, value)

	n, err := strconv.Atoi(cleaned)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

// StatusFromFileName infers the decision status from filename keywords;
// positive datasets carry no marker, so approved is the default.
func StatusFromFileName(fileName string) Status {
	lower := strings.ToLower(fileName)
	if strings.Contains(lower, "negative") || strings.Contains(lower, "denied") {
		return StatusDenied
	}
	return StatusApproved
}

// DecisionDateFromFileName approximates the decision date from a
// year+quarter token in the filename ("tfwp_2021q2") as the middle of the
// quarter. Missing tokens or invalid quarters fall back to the current
// date; this is a known approximation.
func DecisionDateFromFileName(fileName string) time.Time {
	m := quarterPattern.FindStringSubmatch(fileName)
	if m == nil {
		return time.Now().UTC()
	}

	year, _ := strconv.Atoi(m[1])
	quarter, _ := strconv.Atoi(m[2])

	if quarter < 1 || quarter > 4 {
		slog.Warn("Invalid quarter in filename, using current date", "file", fileName, "quarter", quarter)
		return time.Now().UTC()
	}

	// Middle of the quarter: Q1 -> Feb 15, Q2 -> May 15, Q3 -> Aug 15, Q4 -> Nov 15.
	month := time.Month((quarter-1)*3 + 2)
	return time.Date(year, month, 15, 0, 0, 0, 0, time.UTC)
}
