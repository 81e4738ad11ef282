package sources

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/retry"
)

// batch is what one adapter operation produces on success.
type batch struct {
	items    []model.ContentItem
	baseline model.SourceBaseline
}

// runFetch wraps one adapter operation in the retry executor and converts
// the outcome into a FetchResult. The per-call cost estimate is recorded
// once per attempt made. The final classified error is returned alongside
// the result for adapters that stage fallbacks on it.
func runFetch(
	ctx context.Context,
	source model.Source,
	exec *retry.Executor,
	ledger costRecorder,
	operation string,
	costPerCall float64,
	op func(ctx context.Context) (batch, error),
) (*model.FetchResult, error) {
	if ledger == nil {
		ledger = nopRecorder{}
	}

	var got batch
	outcome := exec.Do(ctx, func(ctx context.Context) error {
		b, err := op(ctx)
		if err != nil {
			return err
		}
		got = b
		return nil
	})

	cost := float64(outcome.Attempts) * costPerCall
	if cost > 0 {
		ledger.Record(string(source), operation, cost)
	}

	result := &model.FetchResult{
		Source:     source,
		Success:    outcome.Success(),
		RetryCount: outcome.Retries,
		Elapsed:    outcome.Elapsed,
		CostUSD:    cost,
	}
	if outcome.Success() {
		result.Items = got.items
		result.Baseline = got.baseline
	} else if outcome.Err != nil {
		result.Error = outcome.Err.Error()
	}
	return result, outcome.Err
}

// htmlText flattens an HTML fragment into plain text for excerpts.
func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// truncate bounds an excerpt without splitting words mid-rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
