package dataset

import (
	"strings"
)

// NocFamily returns the set of codes and prefix patterns that are
// equivalent to the given NOC code across classification versions. Entries
// ending in "%" are prefix patterns covering all longer codes that start
// with the digits before it.
//
// A 4-digit (NOC 2011) code widens to its 5-digit children; a 5-digit
// (NOC 2021) code widens to its 4-digit parent; a 6-digit code widens to
// both prefixes. The exact code is always included.
func NocFamily(code string) []string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil
	}

	family := []string{trimmed}

	switch len(trimmed) {
	case 4:
		family = append(family, trimmed+"%")
	case 5:
		family = append(family, trimmed[:4])
	case 6:
		family = append(family, trimmed[:4], trimmed[:5])
	}

	return family
}
