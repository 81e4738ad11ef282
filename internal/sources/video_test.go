package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okoshkin/trendscout/internal/model"
)

const videoTrendingJSON = `{
	"average_views": 5000,
	"items": [
		{"id": "v1", "title": "Big video", "channel": "chan-a",
		 "views": 120000, "likes": 9000, "published_at": "2025-06-14T10:00:00Z"},
		{"id": "v2", "title": "Small video", "channel": "chan-b",
		 "views": 3000, "likes": 100, "published_at": "2025-06-13T10:00:00Z"}
	]
}`

const videoPopularJSON = `{
	"items": [
		{"id": "v10", "title": "Raw one", "channel": "chan-c", "views": 400, "likes": 20},
		{"id": "v11", "title": "Raw two", "channel": "chan-c", "views": 600, "likes": 30}
	]
}`

func TestVideoAdapter_PrimaryProvidesBaseline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/videos/trending" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(videoTrendingJSON))
	}))
	defer srv.Close()

	a := NewVideoAdapter(model.SourceConfig{Endpoint: srv.URL, APIKey: "secret", Limit: 10},
		testClient(), testExecutor(), nil, nil)

	result := a.Fetch(context.Background())

	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	// The pre-aggregated average wins over a locally computed mean.
	if result.Baseline.Average != 5000 {
		t.Errorf("expected provider baseline 5000, got %v", result.Baseline.Average)
	}
}

func TestVideoAdapter_MissingCredentialFallsBack(t *testing.T) {
	var trendingCalls, popularCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/videos/trending":
			trendingCalls++
			w.WriteHeader(http.StatusUnauthorized)
		case "/v1/videos/popular":
			popularCalls++
			w.Write([]byte(videoPopularJSON))
		}
	}))
	defer srv.Close()

	a := NewVideoAdapter(model.SourceConfig{Endpoint: srv.URL, Limit: 10}, // no APIKey
		testClient(), testExecutor(), nil, nil)

	result := a.Fetch(context.Background())

	if !result.Success {
		t.Fatalf("expected fallback success, got %s", result.Error)
	}
	if trendingCalls != 0 {
		t.Errorf("missing credential must not hit the primary endpoint, got %d calls", trendingCalls)
	}
	if popularCalls != 1 {
		t.Errorf("expected exactly one fallback call, got %d", popularCalls)
	}
	// Fallback computes its baseline manually from raw stats.
	if result.Baseline.Average != 500 {
		t.Errorf("expected computed baseline (400+600)/2=500, got %v", result.Baseline.Average)
	}
}

func TestVideoAdapter_ServerErrorFallsBackAfterRetries(t *testing.T) {
	var trendingCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/videos/trending":
			trendingCalls++
			w.WriteHeader(http.StatusInternalServerError)
		case "/v1/videos/popular":
			w.Write([]byte(videoPopularJSON))
		}
	}))
	defer srv.Close()

	a := NewVideoAdapter(model.SourceConfig{Endpoint: srv.URL, APIKey: "secret", Limit: 10},
		testClient(), testExecutor(), nil, nil)

	result := a.Fetch(context.Background())

	if !result.Success {
		t.Fatalf("expected fallback success, got %s", result.Error)
	}
	if trendingCalls != 3 {
		t.Errorf("primary should exhaust its retry budget first, got %d calls", trendingCalls)
	}
	if result.RetryCount < 2 {
		t.Errorf("primary retries must carry into the result, got %d", result.RetryCount)
	}
}

func TestVideoAdapter_TerminalPrimaryDoesNotFallBack(t *testing.T) {
	var popularCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/videos/trending":
			// Malformed request: not in the fallback trigger set.
			w.WriteHeader(http.StatusBadRequest)
		case "/v1/videos/popular":
			popularCalls++
			w.Write([]byte(videoPopularJSON))
		}
	}))
	defer srv.Close()

	a := NewVideoAdapter(model.SourceConfig{Endpoint: srv.URL, APIKey: "secret", Limit: 10},
		testClient(), testExecutor(), nil, nil)

	result := a.Fetch(context.Background())

	if result.Success {
		t.Fatal("expected failure for a non-fallback terminal error")
	}
	if popularCalls != 0 {
		t.Errorf("bad request must not trigger the fallback, got %d calls", popularCalls)
	}
}

func TestVideoAdapter_BothProvidersFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewVideoAdapter(model.SourceConfig{Endpoint: srv.URL, APIKey: "secret", Limit: 10},
		testClient(), testExecutor(), nil, nil)

	result := a.Fetch(context.Background())

	if result.Success {
		t.Fatal("expected failure when both providers are down")
	}
	if result.Error == "" {
		t.Error("expected error detail")
	}
}
