package score

import (
	"time"

	"github.com/okoshkin/trendscout/internal/model"
)

const (
	recencyCeiling = 1.3
	recencyFloor   = 1.0
	recencyDecay   = 7 * 24 * time.Hour
)

// Scorer computes outlier scores. Calculate is a pure function: identical
// (item, baseline) inputs always produce an identical score. The clock is
// fixed at construction so a whole cycle scores against one instant.
type Scorer struct {
	now       time.Time
	detectors []modifierDetector
}

// NewScorer creates a scorer anchored at the given instant.
func NewScorer(now time.Time) *Scorer {
	return &Scorer{
		now:       now.UTC(),
		detectors: defaultDetectors(),
	}
}

// Calculate returns the outlier score for an item against its source
// baseline:
//
//	score = (engagement / baseline_average) * recency * modifier
//
// A zero baseline falls back to the raw engagement value for the ratio
// term; division by zero can never happen.
func (s *Scorer) Calculate(item model.ContentItem, baseline model.SourceBaseline) float64 {
	ratio := item.Engagement.Primary
	if baseline.Average > 0 {
		ratio = item.Engagement.Primary / baseline.Average
	}

	return ratio * s.recencyMultiplier(item.PublishedAt) * s.modifierMultiplier(item)
}

// Annotate scores a batch in place against its baseline and returns it.
func (s *Scorer) Annotate(items []model.ContentItem, baseline model.SourceBaseline) []model.ContentItem {
	for i := range items {
		items[i].OutlierScore = s.Calculate(items[i], baseline)
	}
	return items
}

// recencyMultiplier decays linearly from 1.3 (published now) to 1.0 at
// seven days old and stays at the floor beyond that. Unknown publication
// time gets the floor: freshness cannot be assumed.
func (s *Scorer) recencyMultiplier(published *time.Time) float64 {
	if published == nil {
		return recencyFloor
	}
	age := s.now.Sub(published.UTC())
	if age <= 0 {
		return recencyCeiling
	}
	if age >= recencyDecay {
		return recencyFloor
	}
	frac := float64(age) / float64(recencyDecay)
	return recencyCeiling - frac*(recencyCeiling-recencyFloor)
}

// modifierMultiplier converts matched content-pattern boosts into a single
// multiplier. Boosts are additive before conversion (1 + sum) so several
// matching categories cannot stack multiplicatively.
func (s *Scorer) modifierMultiplier(item model.ContentItem) float64 {
	sum := 0.0
	for _, d := range s.detectors {
		if d.matches(item) {
			sum += d.boost
		}
	}
	return 1 + sum
}

// Modifiers reports which boost categories matched, for manifest metadata.
func (s *Scorer) Modifiers(item model.ContentItem) []string {
	var matched []string
	for _, d := range s.detectors {
		if d.matches(item) {
			matched = append(matched, d.name)
		}
	}
	return matched
}
