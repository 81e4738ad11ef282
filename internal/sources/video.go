package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/retry"
)

const defaultVideoEndpoint = "https://api.vidtrends.example.com"

// VideoAdapter fetches trending videos through a two-stage strategy: a
// preferred provider whose trending endpoint ships pre-aggregated stats
// (and needs a credential), and a keyless fallback that exposes only raw
// view counts, forcing the adapter to compute its baseline manually. The
// fallback decision is made once per invocation: a classified failure of
// the primary (rate limit, server error, missing credential) switches to
// the secondary for the rest of the cycle, never back.
type VideoAdapter struct {
	client   *Client
	exec     *retry.Executor
	ledger   costRecorder
	logger   *slog.Logger
	endpoint string
	apiKey   string
	limit    int
}

// NewVideoAdapter builds the adapter from its source configuration.
func NewVideoAdapter(cfg model.SourceConfig, client *Client, exec *retry.Executor, ledger costRecorder, logger *slog.Logger) *VideoAdapter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultVideoEndpoint
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoAdapter{
		client:   client,
		exec:     exec,
		ledger:   ledger,
		logger:   logger,
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		limit:    limit,
	}
}

func (a *VideoAdapter) Source() model.Source { return model.SourceVideo }
func (a *VideoAdapter) Tier() model.Tier     { return model.TierCore }

// Fetch tries the primary provider, then the fallback on a classified
// failure. Retry/cost accounting from the failed primary stage carries
// into the returned result.
func (a *VideoAdapter) Fetch(ctx context.Context) *model.FetchResult {
	primary, err := runFetch(ctx, a.Source(), a.exec, a.ledger, "trending_api", 0.002, a.fetchPrimary)
	if primary.Success {
		return primary
	}
	if !shouldFallBack(err) {
		return primary
	}

	a.logger.Warn("primary video provider failed, using raw-stats fallback",
		"error", primary.Error)

	fallback, _ := runFetch(ctx, a.Source(), a.exec, a.ledger, "popular_raw", 0, a.fetchFallback)
	fallback.RetryCount += primary.RetryCount
	fallback.CostUSD += primary.CostUSD
	return fallback
}

// shouldFallBack matches the classified failures the secondary provider
// can actually compensate for.
func shouldFallBack(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, retry.ErrMissingCredential) {
		return true
	}
	// Rate limits and server errors classify retryable; reaching here
	// means the retry budget is already exhausted.
	return retry.Classify(err) == retry.ClassRetryable
}

// videoTrendingResponse is the primary provider's pre-aggregated shape.
type videoTrendingResponse struct {
	AverageViews float64      `json:"average_views"`
	Items        []videoStats `json:"items"`
}

// videoPopularResponse is the fallback provider's raw-stats shape.
type videoPopularResponse struct {
	Items []videoStats `json:"items"`
}

type videoStats struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Channel     string  `json:"channel"`
	Views       float64 `json:"views"`
	Likes       float64 `json:"likes"`
	PublishedAt string  `json:"published_at"`
}

func (a *VideoAdapter) fetchPrimary(ctx context.Context) (batch, error) {
	if a.apiKey == "" {
		return batch{}, fmt.Errorf("video trending API: %w", retry.ErrMissingCredential)
	}

	trendURL := fmt.Sprintf("%s/v1/videos/trending?limit=%d&key=%s",
		a.endpoint, a.limit, url.QueryEscape(a.apiKey))

	var resp videoTrendingResponse
	if err := a.client.GetJSON(ctx, a.Source(), trendURL, &resp); err != nil {
		return batch{}, err
	}

	items := a.normalizeAll(resp.Items)
	return batch{
		items: items,
		// The primary ships its own average; trust it over a local mean.
		baseline: model.SourceBaseline{
			Source:     a.Source(),
			Average:    resp.AverageViews,
			SampleSize: len(items),
		},
	}, nil
}

func (a *VideoAdapter) fetchFallback(ctx context.Context) (batch, error) {
	popURL := fmt.Sprintf("%s/v1/videos/popular?limit=%d", a.endpoint, a.limit)

	var resp videoPopularResponse
	if err := a.client.GetJSON(ctx, a.Source(), popURL, &resp); err != nil {
		return batch{}, err
	}

	items := a.normalizeAll(resp.Items)
	return batch{
		items:    items,
		baseline: model.BaselineFromSample(a.Source(), items),
	}, nil
}

func (a *VideoAdapter) normalizeAll(stats []videoStats) []model.ContentItem {
	items := make([]model.ContentItem, 0, len(stats))
	for _, s := range stats {
		if s.ID == "" || s.Title == "" {
			a.logger.Warn("dropping malformed video entry")
			continue
		}

		var published *time.Time
		if s.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
				utc := t.UTC()
				published = &utc
			}
		}

		items = append(items, model.ContentItem{
			ID:     s.ID,
			Source: a.Source(),
			Title:  s.Title,
			URL:    fmt.Sprintf("%s/watch/%s", a.endpoint, s.ID),
			Engagement: model.Engagement{
				Primary:   s.Views,
				Secondary: map[string]float64{"likes": s.Likes},
			},
			PublishedAt: published,
			Metadata:    map[string]string{"channel": s.Channel},
		})
	}
	return items
}
