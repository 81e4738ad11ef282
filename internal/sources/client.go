package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"context"

	"github.com/okoshkin/trendscout/internal/cache"
	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/retry"
	"github.com/okoshkin/trendscout/internal/worker"
)

// Client is the HTTP machinery shared by all adapters: one rate-limited,
// size-capped client with an optional per-source/per-day raw-response
// cache in front of it.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	respCache  cache.Cache // nil disables caching
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewClient builds a client from the HTTP configuration.
func NewClient(cfg model.HTTPConfig, respCache cache.Cache, cacheTTL time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		limiter:   worker.NewLimiter(cfg.RatePerSecond, cfg.RateBurst),
		respCache: respCache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Get fetches rawURL for the given source, serving today's snapshot from
// the raw-response cache when present. Errors come back classified for
// the retry executor: 429/5xx transient, other statuses terminal.
func (c *Client) Get(ctx context.Context, source model.Source, rawURL string) ([]byte, error) {
	var key string
	if c.respCache != nil {
		key = cache.Key(string(source), rawURL, time.Now())
		if body, found := c.respCache.Get(key); found {
			return body, nil
		}
	}

	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, retry.Terminalf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, application/rss+xml, text/html;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and resets classify as transient downstream.
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
		if retry.HTTPStatusClass(resp.StatusCode) == retry.ClassRetryable {
			return nil, retry.Transient(statusErr)
		}
		return nil, retry.Terminal(statusErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if c.respCache != nil {
		if err := c.respCache.Set(key, body, c.cacheTTL); err != nil {
			c.logger.Warn("failed to cache raw response", "source", source, "error", err)
		}
	}
	return body, nil
}

// GetJSON fetches rawURL and decodes the JSON payload into out. A payload
// that does not decode is terminal: retrying cannot fix a malformed
// response shape.
func (c *Client) GetJSON(ctx context.Context, source model.Source, rawURL string, out any) error {
	body, err := c.Get(ctx, source, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Terminalf("decode response: %w", err)
	}
	return nil
}
