package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/retry"
)

const (
	defaultResearchModel = "sonar"
	// Blended per-token estimate for the research provider; the ledger
	// only needs an order-of-magnitude figure for its warnings.
	researchCostPerToken = 0.000002
)

const researchPromptTemplate = `List the %d topics that are trending unusually hard across tech and business media right now.

Respond with a JSON array only, no prose, one object per topic:
[{"topic": "short topic name", "summary": "one sentence on why it is surging", "heat": 0-100}]

"heat" is your estimate of how far above its normal coverage volume the topic currently sits.`

// ResearchAdapter queries an LLM-backed research provider (any
// OpenAI-compatible chat API) for currently surging topics. These items
// have no stable provider id, so their identity is the composite
// topic+fetch-day key.
type ResearchAdapter struct {
	client *openai.Client
	exec   *retry.Executor
	ledger costRecorder
	logger *slog.Logger
	model  string
	limit  int
	hasKey bool
	now    func() time.Time
}

// NewResearchAdapter builds the adapter. A missing API key is not an
// error here: the adapter reports it as a terminal fetch failure so the
// pipeline annotates the source and moves on.
func NewResearchAdapter(cfg model.SourceConfig, exec *retry.Executor, ledger costRecorder, logger *slog.Logger) *ResearchAdapter {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 10
	}
	modelName := cfg.Extra
	if modelName == "" {
		modelName = defaultResearchModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	// fetchOnce records token cost directly, outside runFetch's guard.
	if ledger == nil {
		ledger = nopRecorder{}
	}

	var client *openai.Client
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			clientConfig.BaseURL = cfg.Endpoint
		}
		client = openai.NewClientWithConfig(clientConfig)
	}

	return &ResearchAdapter{
		client: client,
		exec:   exec,
		ledger: ledger,
		logger: logger,
		model:  modelName,
		limit:  limit,
		hasKey: cfg.APIKey != "",
		now:    time.Now,
	}
}

func (a *ResearchAdapter) Source() model.Source { return model.SourceResearch }
func (a *ResearchAdapter) Tier() model.Tier     { return model.TierStretch }

// Fetch runs one research query and normalizes the returned topics.
func (a *ResearchAdapter) Fetch(ctx context.Context) *model.FetchResult {
	result, _ := runFetch(ctx, a.Source(), a.exec, a.ledger, "trend_query", 0, a.fetchOnce)
	return result
}

type researchTopic struct {
	Topic   string  `json:"topic"`
	Summary string  `json:"summary"`
	Heat    float64 `json:"heat"`
}

func (a *ResearchAdapter) fetchOnce(ctx context.Context) (batch, error) {
	if !a.hasKey {
		return batch{}, fmt.Errorf("research provider: %w", retry.ErrMissingCredential)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(researchPromptTemplate, a.limit),
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return batch{}, classifyAPIError(err)
	}

	a.ledger.Record(string(a.Source()), "tokens",
		float64(resp.Usage.TotalTokens)*researchCostPerToken)

	if len(resp.Choices) == 0 {
		return batch{}, retry.Transient(fmt.Errorf("empty completion"))
	}

	topics, err := parseTopics(resp.Choices[0].Message.Content)
	if err != nil {
		return batch{}, retry.Terminalf("parse research response: %w", err)
	}

	day := a.now().UTC()
	items := make([]model.ContentItem, 0, len(topics))
	for _, t := range topics {
		if t.Topic == "" {
			a.logger.Warn("dropping research topic without a name")
			continue
		}
		items = append(items, model.ContentItem{
			ID:      model.CompositeID(strings.ToLower(t.Topic), &day),
			Source:  a.Source(),
			Title:   t.Topic,
			Excerpt: truncate(t.Summary, 280),
			Engagement: model.Engagement{
				Primary: t.Heat,
			},
			// The provider reports current heat, not a publication
			// time; age stays unknown.
			Metadata: map[string]string{"provider_model": a.model},
		})
	}

	return batch{
		items:    items,
		baseline: model.BaselineFromSample(a.Source(), items),
	}, nil
}

// parseTopics tolerates code fences and leading prose around the array.
func parseTopics(content string) ([]researchTopic, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in completion")
	}

	var topics []researchTopic
	if err := json.Unmarshal([]byte(content[start:end+1]), &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// classifyAPIError maps provider API errors onto retry classes using the
// HTTP status they carry.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if retry.HTTPStatusClass(apiErr.HTTPStatusCode) == retry.ClassRetryable {
			return retry.Transient(err)
		}
		return retry.Terminal(err)
	}
	return err
}
