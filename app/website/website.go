package website

import (
	"net/url"
	"strings"
)

// Resolver supplies a website URL for an employer. Implementations must be
// cheap and must never fail: enrichment is best-effort and a placeholder
// value is acceptable.
type Resolver interface {
	ResolveWebsiteURL(employer, city, province string) string
}

// SearchURLResolver generates a web search URL for the employer instead of
// performing any lookup. Real website discovery is an external concern; this
// keeps ingestion fast and offline while still giving every record a
// clickable destination.
type SearchURLResolver struct{}

func NewSearchURLResolver() SearchURLResolver {
	return SearchURLResolver{}
}

func (SearchURLResolver) ResolveWebsiteURL(employer, city, province string) string {
	employer = strings.TrimSpace(employer)
	if employer == "" {
		return ""
	}

	var query strings.Builder
	query.WriteString(`"` + employer + `"`)
	if city = strings.TrimSpace(city); city != "" {
		query.WriteString(" " + city)
	}
	if province = strings.TrimSpace(province); province != "" {
		query.WriteString(" " + province)
	}
	query.WriteString(" Canada website")

	return "https://www.google.com/search?q=" + url.QueryEscape(query.String())
}
