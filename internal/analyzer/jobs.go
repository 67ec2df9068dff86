package analyzer

import "slices"

type JobSummary struct {
	Job                      string  `json:"job"`
	Targets                  int     `json:"targets"`
	Healthy                  int     `json:"healthy"`
	ScrapeInterval           string  `json:"scrapeInterval"`
	Fast                     bool    `json:"fast"`
	AvgScrapeDurationSeconds float64 `json:"avgScrapeDurationSeconds"`
}

type jobAccumulator struct {
	summary       JobSummary
	durationTotal float64
	durationCount int
}

// SummarizeJobs groups targets by job. The interval shown is the first one
// seen for the job; the average scrape duration ignores targets that have
// not been scraped yet. Jobs with the most targets come first.
func (a *Analyzer) SummarizeJobs(targets *TargetSet) []JobSummary {
	var order []*jobAccumulator
	byJob := make(map[string]*jobAccumulator)

	for _, t := range targets.Targets() {
		j, ok := byJob[t.Job]
		if !ok {
			j = &jobAccumulator{summary: JobSummary{Job: t.Job, ScrapeInterval: t.ScrapeInterval}}
			if d, ok := ParseScrapeInterval(t.ScrapeInterval); ok {
				j.summary.Fast = d < a.thresholds.FastScrapeInterval
			}
			byJob[t.Job] = j
			order = append(order, j)
		}
		j.summary.Targets++
		if t.Health == HealthUp {
			j.summary.Healthy++
		}
		if t.LastScrapeDurationSeconds > 0 {
			j.durationTotal += t.LastScrapeDurationSeconds
			j.durationCount++
		}
	}

	out := make([]JobSummary, 0, len(order))
	for _, j := range order {
		if j.durationCount > 0 {
			j.summary.AvgScrapeDurationSeconds = j.durationTotal / float64(j.durationCount)
		}
		out = append(out, j.summary)
	}
	slices.SortStableFunc(out, func(x, y JobSummary) int {
		return y.Targets - x.Targets
	})
	return out
}
