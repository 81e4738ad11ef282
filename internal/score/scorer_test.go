package score

import (
	"math"
	"testing"
	"time"

	"github.com/okoshkin/trendscout/internal/model"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func item(engagement float64, published *time.Time, title string) model.ContentItem {
	return model.ContentItem{
		ID:          "t1",
		Source:      model.SourceForum,
		Title:       title,
		Engagement:  model.Engagement{Primary: engagement},
		PublishedAt: published,
	}
}

func hoursAgo(h float64) *time.Time {
	t := testNow.Add(-time.Duration(h * float64(time.Hour)))
	return &t
}

func TestScorer_WorkedExample(t *testing.T) {
	// Engagement 200 against baseline 40 -> ratio 5.0. Posted one day ago
	// (recency ~1.257) with a monetary mention (+30%) -> ~8.17.
	scorer := NewScorer(testNow)
	baseline := model.SourceBaseline{Source: model.SourceForum, Average: 40, SampleSize: 3}

	it := item(200, hoursAgo(24), "How I made $5000 in a weekend")
	got := scorer.Calculate(it, baseline)

	recency := 1.3 - (1.0/7.0)*0.3
	want := 5.0 * recency * 1.3
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected score %.4f, got %.4f", want, got)
	}
	if got < 3.0 {
		t.Errorf("expected score to clear the 3x outlier threshold, got %.4f", got)
	}
}

func TestScorer_Purity(t *testing.T) {
	scorer := NewScorer(testNow)
	baseline := model.SourceBaseline{Source: model.SourceForum, Average: 40}
	it := item(200, hoursAgo(24), "How I made $5000 in a weekend")

	a := scorer.Calculate(it, baseline)
	b := scorer.Calculate(it, baseline)
	if a != b {
		t.Errorf("scoring is not pure: %v != %v", a, b)
	}
}

func TestScorer_ZeroBaselineFallsBackToRawEngagement(t *testing.T) {
	scorer := NewScorer(testNow)
	baseline := model.SourceBaseline{Source: model.SourceForum, Average: 0}

	it := item(42, nil, "plain title")
	got := scorer.Calculate(it, baseline)
	if got != 42 {
		t.Errorf("expected raw engagement 42 with zero baseline, got %v", got)
	}
}

func TestScorer_RecencyBounds(t *testing.T) {
	scorer := NewScorer(testNow)

	tests := []struct {
		name      string
		published *time.Time
		want      float64
	}{
		{"published now", hoursAgo(0), 1.3},
		{"future timestamp clamps to ceiling", hoursAgo(-2), 1.3},
		{"seven days old", hoursAgo(7 * 24), 1.0},
		{"thirty days old floors", hoursAgo(30 * 24), 1.0},
		{"unknown age gets floor", nil, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.recencyMultiplier(tt.published)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestScorer_RecencyMonotonicNonIncreasing(t *testing.T) {
	scorer := NewScorer(testNow)

	prev := 2.0
	for h := 0.0; h <= 10*24; h += 6 {
		m := scorer.recencyMultiplier(hoursAgo(h))
		if m > prev {
			t.Fatalf("recency multiplier increased with age at %vh: %v > %v", h, m, prev)
		}
		if m < 1.0 || m > 1.3 {
			t.Fatalf("recency multiplier out of [1.0, 1.3] at %vh: %v", h, m)
		}
		prev = m
	}
}

func TestScorer_ModifiersAreAdditive(t *testing.T) {
	scorer := NewScorer(testNow)

	// Monetary (+0.30) and insider (+0.20) both match: multiplier must be
	// 1.5, not 1.3*1.2.
	it := item(10, nil, "The secret way I earn $300 a day")
	got := scorer.modifierMultiplier(it)
	if math.Abs(got-1.5) > 1e-9 {
		t.Errorf("expected additive multiplier 1.5, got %v", got)
	}
}

func TestScorer_ModifierCategories(t *testing.T) {
	scorer := NewScorer(testNow)

	tests := []struct {
		title string
		want  float64
	}{
		{"I quit my job after my side project hit $10k MRR", 1.3},
		{"This script saved me hours every week", 1.2},
		{"Insider knowledge nobody talks about", 1.2},
		{"Unpopular opinion: this framework is overrated", 1.15},
		{"A perfectly ordinary headline", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := scorer.modifierMultiplier(item(1, nil, tt.title))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("title %q: expected %v, got %v", tt.title, tt.want, got)
			}
		})
	}
}

func TestScorer_Annotate(t *testing.T) {
	scorer := NewScorer(testNow)
	items := []model.ContentItem{
		item(10, nil, "a"),
		item(50, nil, "b"),
		item(200, nil, "c"),
	}
	baseline := model.BaselineFromSample(model.SourceForum, items)
	if math.Abs(baseline.Average-86.666666) > 1e-3 {
		t.Fatalf("unexpected baseline %v", baseline.Average)
	}

	scored := scorer.Annotate(items, model.SourceBaseline{Source: model.SourceForum, Average: 40})
	wantRatios := []float64{0.25, 1.25, 5.0}
	for i, w := range wantRatios {
		if math.Abs(scored[i].OutlierScore-w) > 1e-9 {
			t.Errorf("item %d: expected %v, got %v", i, w, scored[i].OutlierScore)
		}
	}
}
