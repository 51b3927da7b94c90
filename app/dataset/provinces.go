package dataset

import (
	"strings"
)

var provinceNames = []string{
	"Newfoundland and Labrador", "Ontario", "Quebec", "British Columbia",
	"Alberta", "Manitoba", "Saskatchewan", "Nova Scotia",
	"New Brunswick", "Prince Edward Island", "Yukon", "Northwest Territories",
	"Nunavut",
}

var provinceAbbreviations = []string{
	"NL", "ON", "QC", "BC", "AB", "MB", "SK", "NS", "NB", "PE", "YT", "NT", "NU",
}

// ProvinceFromAbbreviation maps a 2-letter province code to its full name.
// Unknown codes are returned unchanged.
func ProvinceFromAbbreviation(abbrev string) string {
	for i, a := range provinceAbbreviations {
		if strings.EqualFold(a, abbrev) {
			return provinceNames[i]
		}
	}
	return abbrev
}

// detectProvinceLine reports the province a standalone line refers to, or
// "" when the line does not look like a province marker. Comma-heavy long
// lines are data rows, not markers.
func detectProvinceLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, ",") && len(trimmed) > 50 {
		return ""
	}

	for _, province := range provinceNames {
		if strings.EqualFold(trimmed, province) || strings.Contains(trimmed, province) {
			return province
		}
	}

	if len(trimmed) <= 3 {
		for i, abbrev := range provinceAbbreviations {
			if strings.EqualFold(trimmed, abbrev) {
				return provinceNames[i]
			}
		}
	}

	return ""
}
