package analyzer

import (
	"regexp"
	"time"

	"github.com/prometheus/common/model"
)

var intervalPattern = regexp.MustCompile(`^(\d+)(ms|s|m|h)$`)

// ParseScrapeInterval parses a single-unit scrape interval such as "15s",
// "500ms", "1m" or "2h". Anything else, including compound durations,
// reports false.
func ParseScrapeInterval(s string) (time.Duration, bool) {
	if !intervalPattern.MatchString(s) {
		return 0, false
	}
	d, err := model.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return time.Duration(d), true
}
