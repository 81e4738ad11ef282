package score

import (
	"regexp"
	"strings"

	"github.com/okoshkin/trendscout/internal/model"
)

// modifierDetector is one boost category: a name, the additive boost it
// contributes, and a pattern over the item's title and excerpt.
type modifierDetector struct {
	name    string
	boost   float64
	pattern *regexp.Regexp
}

func (d modifierDetector) matches(item model.ContentItem) bool {
	text := strings.ToLower(item.Title + " " + item.Excerpt)
	return d.pattern.MatchString(text)
}

// defaultDetectors returns the fixed boost categories. Patterns match on
// lowercased text, so they are written lowercase.
func defaultDetectors() []modifierDetector {
	return []modifierDetector{
		{
			name:    "monetary",
			boost:   0.30,
			pattern: regexp.MustCompile(`\$\d|\d+k\b|salary|revenue|profit|made money|earn(ed|ing|s)?\b|income|paid off|passive income`),
		},
		{
			name:    "time_savings",
			boost:   0.20,
			pattern: regexp.MustCompile(`save[ds]? (me )?(hours|time|days|weeks)|in \d+ minutes|faster|automat(e|ed|ion)|shortcut|time.saving`),
		},
		{
			name:    "insider",
			boost:   0.20,
			pattern: regexp.MustCompile(`secret|insider|nobody (talks|tells)|hidden|behind the scenes|they don'?t want|leaked`),
		},
		{
			name:    "controversy",
			boost:   0.15,
			pattern: regexp.MustCompile(`controvers|unpopular opinion|hot take|banned|scandal|outrage|backlash|exposed`),
		},
	}
}
