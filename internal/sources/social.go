package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/retry"
)

const defaultSocialEndpoint = "https://mastodon.social"

// SocialAdapter fetches trending short-form posts from a fediverse-style
// instance. Engagement combines boosts and favourites, the two signals
// the platform exposes comparably across instances.
type SocialAdapter struct {
	client   *Client
	exec     *retry.Executor
	ledger   costRecorder
	logger   *slog.Logger
	endpoint string
	limit    int
}

// NewSocialAdapter builds the adapter from its source configuration.
func NewSocialAdapter(cfg model.SourceConfig, client *Client, exec *retry.Executor, ledger costRecorder, logger *slog.Logger) *SocialAdapter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultSocialEndpoint
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 40
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SocialAdapter{
		client:   client,
		exec:     exec,
		ledger:   ledger,
		logger:   logger,
		endpoint: endpoint,
		limit:    limit,
	}
}

func (a *SocialAdapter) Source() model.Source { return model.SourceSocial }
func (a *SocialAdapter) Tier() model.Tier     { return model.TierStretch }

type socialStatus struct {
	ID              string  `json:"id"`
	URL             string  `json:"url"`
	Content         string  `json:"content"` // HTML fragment
	CreatedAt       string  `json:"created_at"`
	ReblogsCount    float64 `json:"reblogs_count"`
	FavouritesCount float64 `json:"favourites_count"`
	RepliesCount    float64 `json:"replies_count"`
	Account         struct {
		Acct string `json:"acct"`
	} `json:"account"`
}

// Fetch retrieves the instance's trending statuses.
func (a *SocialAdapter) Fetch(ctx context.Context) *model.FetchResult {
	result, _ := runFetch(ctx, a.Source(), a.exec, a.ledger, "trends_statuses", 0, a.fetchOnce)
	return result
}

func (a *SocialAdapter) fetchOnce(ctx context.Context) (batch, error) {
	trendsURL := fmt.Sprintf("%s/api/v1/trends/statuses?limit=%d", a.endpoint, a.limit)

	var statuses []socialStatus
	if err := a.client.GetJSON(ctx, a.Source(), trendsURL, &statuses); err != nil {
		return batch{}, err
	}

	items := make([]model.ContentItem, 0, len(statuses))
	for _, s := range statuses {
		item, ok := a.normalize(s)
		if !ok {
			a.logger.Warn("dropping malformed social status")
			continue
		}
		items = append(items, item)
	}

	return batch{
		items:    items,
		baseline: model.BaselineFromSample(a.Source(), items),
	}, nil
}

func (a *SocialAdapter) normalize(s socialStatus) (model.ContentItem, bool) {
	if s.ID == "" {
		return model.ContentItem{}, false
	}

	text := htmlText(s.Content)
	if text == "" {
		return model.ContentItem{}, false
	}

	var published *time.Time
	if s.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, s.CreatedAt); err == nil {
			utc := t.UTC()
			published = &utc
		}
	}

	return model.ContentItem{
		ID:      s.ID,
		Source:  a.Source(),
		Title:   truncate(text, 120),
		Excerpt: truncate(text, 280),
		URL:     s.URL,
		Engagement: model.Engagement{
			Primary:   s.ReblogsCount + s.FavouritesCount,
			Secondary: map[string]float64{"replies": s.RepliesCount},
		},
		PublishedAt: published,
		Metadata:    map[string]string{"account": s.Account.Acct},
	}, true
}
