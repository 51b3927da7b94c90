package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/openlmia/lmiahub/app/sources"
)

const DefaultBaseURL = "https://open.canada.ca"

// Client resolves downloadable resource URLs from a CKAN dataset catalog.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	userAgent   string
	maxAttempts int
	baseDelay   time.Duration
}

type ClientOptions struct {
	BaseURL     string
	HTTPClient  *http.Client
	UserAgent   string
	MaxAttempts int
	BaseDelay   time.Duration
}

func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 4
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		userAgent:   opts.UserAgent,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// ResolveResourceURLs runs the catalog search for a source and returns the
// resources that pass format, language and topic filtering. The search
// request is retried with multiplicative backoff; exhausting all attempts
// is a hard failure because nothing downstream can run without the list.
func (c *Client) ResolveResourceURLs(ctx context.Context, source sources.Source) ([]Resource, error) {
	var lastErr error
	delay := c.baseDelay

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		entries, err := c.search(ctx, source.Query)
		if err == nil {
			resources := filterResources(entries, source)
			slog.Info("Resolved catalog resources", "source", source.Name,
				"advertised", len(entries), "matching", len(resources))
			return resources, nil
		}

		lastErr = err
		if attempt == c.maxAttempts {
			break
		}

		slog.Warn("Catalog search failed, retrying", "source", source.Name,
			"attempt", attempt, "max_attempts", c.maxAttempts, "delay", delay.String(), "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * 1.5)
	}

	return nil, fmt.Errorf("catalog unreachable after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) search(ctx context.Context, query string) ([]resourceEntry, error) {
	searchURL := fmt.Sprintf("%s/data/en/api/3/action/package_search?q=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("catalog returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	var parsed packageSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed catalog response: %w", err)
	}
	if len(parsed.Result.Results) == 0 {
		return nil, fmt.Errorf("catalog response contains no datasets")
	}

	var entries []resourceEntry
	for _, dataset := range parsed.Result.Results {
		entries = append(entries, dataset.Resources...)
	}
	return entries, nil
}

func filterResources(entries []resourceEntry, source sources.Source) []Resource {
	var resources []Resource
	for _, entry := range entries {
		format := detectFormat(entry, source.Formats)
		if format == "" {
			continue
		}
		if !isEnglish(entry, source) {
			continue
		}
		if !mentionsKeywords(entry, source.Keywords) {
			continue
		}
		resources = append(resources, Resource{
			Name:   entry.Name,
			URL:    entry.URL,
			Format: format,
		})
	}
	return resources
}

// detectFormat returns the resource format when it is one of the accepted
// tabular types, preferring the declared format over the URL extension.
func detectFormat(entry resourceEntry, formats []string) string {
	declared := strings.ToLower(strings.TrimSpace(entry.Format))
	for _, f := range formats {
		if declared == strings.ToLower(f) {
			return declared
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(urlPath(entry.URL)), "."))
	for _, f := range formats {
		if ext == strings.ToLower(f) {
			return ext
		}
	}
	return ""
}

// isEnglish accepts a resource whose name or URL carries an English marker
// and lacks a French one. French markers win: a resource tagged with both
// is assumed to be the French variant.
func isEnglish(entry resourceEntry, source sources.Source) bool {
	haystack := strings.ToLower(entry.Name + " " + entry.URL)
	for _, marker := range source.FrenchMarkers {
		if strings.Contains(haystack, strings.ToLower(marker)) {
			return false
		}
	}
	for _, marker := range source.EnglishMarkers {
		if strings.Contains(haystack, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

func mentionsKeywords(entry resourceEntry, keywords []string) bool {
	haystack := strings.ToLower(entry.Name + " " + entry.URL)
	for _, keyword := range keywords {
		if !strings.Contains(haystack, strings.ToLower(keyword)) {
			return false
		}
	}
	return true
}

func urlPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Path
}
