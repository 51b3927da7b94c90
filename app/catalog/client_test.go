package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openlmia/lmiahub/app/sources"
)

func testSource() sources.Source {
	return sources.Source{
		Name:           "lmia-noc",
		Query:          "lmia",
		Keywords:       []string{"positive"},
		EnglishMarkers: []string{"_en", "en"},
		FrenchMarkers:  []string{"_fr", "fra"},
		Formats:        []string{"csv", "xlsx", "xls"},
	}
}

func searchPayload() string {
	return `{
		"success": true,
		"result": {
			"results": [
				{
					"resources": [
						{"name": "2021Q2 Positive LMIA Employers", "url": "https://files.example.com/tfwp_2021q2_positive_en.csv", "format": "CSV"},
						{"name": "2021Q2 Employeurs EIMT positifs", "url": "https://files.example.com/tfwp_2021q2_positive_fr.csv", "format": "CSV"},
						{"name": "2021Q2 Positive LMIA Employers PDF", "url": "https://files.example.com/tfwp_2021q2_positive_en.pdf", "format": "PDF"},
						{"name": "2021Q2 Negative LMIA Employers", "url": "https://files.example.com/tfwp_2021q2_negative_en.csv", "format": "CSV"},
						{"name": "Unrelated dataset", "url": "https://files.example.com/other_en.csv", "format": "CSV"}
					]
				}
			]
		}
	}`
}

func TestResolveResourceURLs_Filtering(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/en/api/3/action/package_search" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "lmia" {
			t.Errorf("Expected query 'lmia', got '%s'", got)
		}
		w.Write([]byte(searchPayload()))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseURL: server.URL, MaxAttempts: 1})

	resources, err := client.ResolveResourceURLs(context.Background(), testSource())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// French variant, PDF, and the resources without keywords must be dropped
	if len(resources) != 1 {
		t.Fatalf("Expected 1 resource, got %d: %+v", len(resources), resources)
	}
	if resources[0].URL != "https://files.example.com/tfwp_2021q2_positive_en.csv" {
		t.Errorf("Unexpected resource URL: %s", resources[0].URL)
	}
	if resources[0].Format != "csv" {
		t.Errorf("Expected format 'csv', got '%s'", resources[0].Format)
	}
}

func TestResolveResourceURLs_FormatFromURLExtension(t *testing.T) {
	payload := `{
		"success": true,
		"result": {
			"results": [
				{
					"resources": [
						{"name": "positive lmia employers", "url": "https://files.example.com/employers_positive_en.xlsx?version=2", "format": ""}
					]
				}
			]
		}
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseURL: server.URL, MaxAttempts: 1})

	resources, err := client.ResolveResourceURLs(context.Background(), testSource())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(resources) != 1 {
		t.Fatalf("Expected 1 resource, got %d", len(resources))
	}
	if resources[0].Format != "xlsx" {
		t.Errorf("Expected format 'xlsx' from URL extension, got '%s'", resources[0].Format)
	}
}

func TestResolveResourceURLs_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(searchPayload()))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:     server.URL,
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
	})

	resources, err := client.ResolveResourceURLs(context.Background(), testSource())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(resources) != 1 {
		t.Errorf("Expected 1 resource after retries, got %d", len(resources))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("Expected 3 calls, got %d", got)
	}
}

func TestResolveResourceURLs_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:     server.URL,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	})

	_, err := client.ResolveResourceURLs(context.Background(), testSource())
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("Expected 3 calls, got %d", got)
	}
}

func TestResolveResourceURLs_EmptyCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "result": {"results": []}}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:     server.URL,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	})

	if _, err := client.ResolveResourceURLs(context.Background(), testSource()); err == nil {
		t.Error("Expected error for catalog with no datasets")
	}
}

func TestResolveResourceURLs_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:     server.URL,
		MaxAttempts: 10,
		BaseDelay:   10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.ResolveResourceURLs(ctx, testSource())
	if err == nil {
		t.Fatal("Expected error on cancelled context")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Expected cancellation to interrupt the backoff sleep")
	}
}

func TestIsEnglish_FrenchMarkersWin(t *testing.T) {
	source := testSource()

	// Tagged with both markers counts as the French variant
	entry := resourceEntry{Name: "employers_en", URL: "https://files.example.com/employers_fr.csv"}
	if isEnglish(entry, source) {
		t.Error("Expected resource with a French marker to be rejected")
	}

	entry = resourceEntry{Name: "employers", URL: "https://files.example.com/employers_en.csv"}
	if !isEnglish(entry, source) {
		t.Error("Expected resource with an English marker to be accepted")
	}

	entry = resourceEntry{Name: "employers", URL: "https://files.example.com/employers.csv"}
	if isEnglish(entry, source) {
		t.Error("Expected resource without markers to be rejected")
	}
}
