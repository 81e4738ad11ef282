package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/retry"
)

const defaultForumEndpoint = "https://www.reddit.com"

// ForumAdapter fetches the day's top posts from a forum-style provider
// with a public JSON listing API. Engagement is upvote driven.
type ForumAdapter struct {
	client    *Client
	exec      *retry.Executor
	ledger    costRecorder
	logger    *slog.Logger
	endpoint  string
	community string
	limit     int
}

// NewForumAdapter builds the adapter from its source configuration.
func NewForumAdapter(cfg model.SourceConfig, client *Client, exec *retry.Executor, ledger costRecorder, logger *slog.Logger) *ForumAdapter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultForumEndpoint
	}
	community := cfg.Extra
	if community == "" {
		community = "all"
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ForumAdapter{
		client:    client,
		exec:      exec,
		ledger:    ledger,
		logger:    logger,
		endpoint:  endpoint,
		community: community,
		limit:     limit,
	}
}

func (a *ForumAdapter) Source() model.Source { return model.SourceForum }
func (a *ForumAdapter) Tier() model.Tier     { return model.TierCore }

// forumListing mirrors the provider's listing envelope.
type forumListing struct {
	Data struct {
		Children []struct {
			Data forumPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type forumPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	Score       float64 `json:"score"`
	NumComments float64 `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Fetch retrieves one cycle's sample and its baseline.
func (a *ForumAdapter) Fetch(ctx context.Context) *model.FetchResult {
	result, _ := runFetch(ctx, a.Source(), a.exec, a.ledger, "top_listing", 0, a.fetchOnce)
	return result
}

func (a *ForumAdapter) fetchOnce(ctx context.Context) (batch, error) {
	listURL := fmt.Sprintf("%s/r/%s/top.json?t=day&limit=%d",
		a.endpoint, url.PathEscape(a.community), a.limit)

	var listing forumListing
	if err := a.client.GetJSON(ctx, a.Source(), listURL, &listing); err != nil {
		return batch{}, err
	}

	items := make([]model.ContentItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		item, ok := a.normalize(child.Data)
		if !ok {
			a.logger.Warn("dropping malformed forum post", "community", a.community)
			continue
		}
		items = append(items, item)
	}

	return batch{
		items:    items,
		baseline: model.BaselineFromSample(a.Source(), items),
	}, nil
}

// normalize converts one raw post, reporting false for posts missing the
// fields the pipeline cannot work without.
func (a *ForumAdapter) normalize(post forumPost) (model.ContentItem, bool) {
	if post.ID == "" || post.Title == "" {
		return model.ContentItem{}, false
	}

	var published *time.Time
	if post.CreatedUTC > 0 {
		t := time.Unix(int64(post.CreatedUTC), 0).UTC()
		published = &t
	}

	return model.ContentItem{
		ID:      post.ID,
		Source:  a.Source(),
		Title:   post.Title,
		Excerpt: truncate(post.SelfText, 280),
		URL:     a.endpoint + post.Permalink,
		Engagement: model.Engagement{
			Primary:   post.Score,
			Secondary: map[string]float64{"comments": post.NumComments},
		},
		PublishedAt: published,
		Metadata:    map[string]string{"community": post.Subreddit},
	}, true
}
