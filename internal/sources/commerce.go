package sources

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/retry"
	"github.com/okoshkin/trendscout/internal/util"
)

// CommerceAdapter fetches a commerce site's trending-products surface.
// Sites that publish a trending feed are read through it; otherwise the
// adapter scrapes the trending page, gated by robots.txt. Engagement is
// review velocity when the markup exposes it and rank-derived weight when
// it does not (top of the list = strongest signal).
type CommerceAdapter struct {
	client   *Client
	exec     *retry.Executor
	ledger   costRecorder
	logger   *slog.Logger
	robots   *util.RobotsChecker
	feed     *gofeed.Parser
	endpoint string
	limit    int
}

// NewCommerceAdapter builds the adapter from its source configuration.
// The endpoint is the site root; the adapter derives the feed and page
// URLs from it.
func NewCommerceAdapter(cfg model.SourceConfig, client *Client, exec *retry.Executor, ledger costRecorder, robots *util.RobotsChecker, logger *slog.Logger) *CommerceAdapter {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommerceAdapter{
		client:   client,
		exec:     exec,
		ledger:   ledger,
		logger:   logger,
		robots:   robots,
		feed:     gofeed.NewParser(),
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		limit:    limit,
	}
}

func (a *CommerceAdapter) Source() model.Source { return model.SourceCommerce }
func (a *CommerceAdapter) Tier() model.Tier     { return model.TierStretch }

// Fetch reads the trending feed, falling back to the HTML page when the
// site publishes no feed. Like the video adapter, the fallback decision
// is made once per invocation.
func (a *CommerceAdapter) Fetch(ctx context.Context) *model.FetchResult {
	if a.endpoint == "" {
		result, _ := runFetch(ctx, a.Source(), a.exec, a.ledger, "trending", 0,
			func(context.Context) (batch, error) {
				return batch{}, retry.Terminalf("commerce endpoint not configured")
			})
		return result
	}

	feedResult, err := runFetch(ctx, a.Source(), a.exec, a.ledger, "trending_feed", 0, a.fetchFeed)
	if feedResult.Success {
		return feedResult
	}
	if retry.Classify(err) == retry.ClassRetryable {
		// The feed exists but the site is struggling; scraping it now
		// would fare no better.
		return feedResult
	}

	a.logger.Warn("commerce feed unavailable, scraping trending page", "error", feedResult.Error)

	scrapeResult, _ := runFetch(ctx, a.Source(), a.exec, a.ledger, "trending_scrape", 0, a.fetchScrape)
	scrapeResult.RetryCount += feedResult.RetryCount
	scrapeResult.CostUSD += feedResult.CostUSD
	return scrapeResult
}

// fetchFeed reads <endpoint>/trending.rss.
func (a *CommerceAdapter) fetchFeed(ctx context.Context) (batch, error) {
	body, err := a.client.Get(ctx, a.Source(), a.endpoint+"/trending.rss")
	if err != nil {
		return batch{}, err
	}

	feed, err := a.feed.Parse(bytes.NewReader(body))
	if err != nil {
		return batch{}, retry.Terminalf("parse trending feed: %w", err)
	}

	total := len(feed.Items)
	if total > a.limit {
		total = a.limit
	}

	items := make([]model.ContentItem, 0, total)
	for i, fi := range feed.Items[:total] {
		id := fi.GUID
		if id == "" {
			id = fi.Link
		}
		if id == "" || fi.Title == "" {
			a.logger.Warn("dropping malformed feed entry", "position", i)
			continue
		}

		item := model.ContentItem{
			ID:      id,
			Source:  a.Source(),
			Title:   fi.Title,
			Excerpt: truncate(htmlText(fi.Description), 280),
			URL:     fi.Link,
			Engagement: model.Engagement{
				// Feeds carry order, not counters: weight by rank.
				Primary:   float64(total - i),
				Secondary: map[string]float64{"rank": float64(i + 1)},
			},
			Metadata: map[string]string{"origin": "feed"},
		}
		if fi.PublishedParsed != nil {
			utc := fi.PublishedParsed.UTC()
			item.PublishedAt = &utc
		}
		items = append(items, item)
	}

	return batch{
		items:    items,
		baseline: model.BaselineFromSample(a.Source(), items),
	}, nil
}

// fetchScrape parses <endpoint>/trending, honoring robots.txt.
func (a *CommerceAdapter) fetchScrape(ctx context.Context) (batch, error) {
	pageURL := a.endpoint + "/trending"

	if a.robots != nil {
		allowed, _, err := a.robots.CanFetch(ctx, pageURL)
		if err == nil && !allowed {
			return batch{}, retry.Terminalf("robots.txt disallows %s", pageURL)
		}
	}

	body, err := a.client.Get(ctx, a.Source(), pageURL)
	if err != nil {
		return batch{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return batch{}, retry.Terminalf("parse trending page: %w", err)
	}

	var items []model.ContentItem
	doc.Find("[data-product-id]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if len(items) >= a.limit {
			return false
		}

		id, _ := sel.Attr("data-product-id")
		title := strings.TrimSpace(sel.Find(".product-title").First().Text())
		if id == "" || title == "" {
			a.logger.Warn("dropping malformed product card", "position", i)
			return true
		}

		reviews := parseCount(sel.Find(".review-count").First().Text())
		engagement := reviews
		if engagement == 0 {
			engagement = float64(a.limit - len(items))
		}

		href, _ := sel.Find("a").First().Attr("href")
		if strings.HasPrefix(href, "/") {
			href = a.endpoint + href
		}

		items = append(items, model.ContentItem{
			ID:     id,
			Source: a.Source(),
			Title:  title,
			URL:    href,
			Engagement: model.Engagement{
				Primary:   engagement,
				Secondary: map[string]float64{"rank": float64(i + 1)},
			},
			// Product cards carry no publication time.
			Metadata: map[string]string{"origin": "scrape"},
		})
		return true
	})

	if len(items) == 0 {
		return batch{}, retry.Terminalf("no product cards found on %s", pageURL)
	}

	return batch{
		items:    items,
		baseline: model.BaselineFromSample(a.Source(), items),
	}, nil
}

// parseCount pulls the first integer out of text like "1,204 reviews".
func parseCount(text string) float64 {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else if digits.Len() > 0 && r != ',' {
			break
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return 0
	}
	return n
}
