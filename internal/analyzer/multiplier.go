package analyzer

import (
	"math"
	"math/bits"
	"slices"
	"sort"
)

// LabelBreakdown is how many distinct values one label takes across a
// metric's series. SampleValues is a display sample of at most five values;
// UniqueValues is exact.
type LabelBreakdown struct {
	Label        string   `json:"label"`
	UniqueValues int      `json:"uniqueValues"`
	SampleValues []string `json:"sampleValues"`
}

// MetricTree is the label multiplier breakdown of one metric. Product is
// the fold of every label's UniqueValues; it saturates at MaxUint64 and
// sets Overflow instead of wrapping.
type MetricTree struct {
	Metric      string           `json:"metric"`
	TotalSeries int64            `json:"totalSeries"`
	Labels      []LabelBreakdown `json:"labels"`
	Product     uint64           `json:"product"`
	Overflow    bool             `json:"overflow"`
}

type labelAccumulator struct {
	label  string
	seen   map[string]struct{}
	sample []string
}

// BuildMultiplierTree counts the distinct values of every label across the
// given series, ignoring the metric name label. Labels are ordered by
// distinct value count descending, ties by the order labels were first
// seen. Within a series, label keys are visited in lexical order so the
// first-seen order does not depend on map iteration.
func BuildMultiplierTree(series []RawSeries) []LabelBreakdown {
	var order []*labelAccumulator
	byLabel := make(map[string]*labelAccumulator)

	for _, s := range series {
		keys := make([]string, 0, len(s))
		for k := range s {
			if k == MetricNameLabel {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			acc, ok := byLabel[k]
			if !ok {
				acc = &labelAccumulator{label: k, seen: make(map[string]struct{})}
				byLabel[k] = acc
				order = append(order, acc)
			}
			v := s[k]
			if _, dup := acc.seen[v]; dup {
				continue
			}
			acc.seen[v] = struct{}{}
			if len(acc.sample) < sampleValuesLimit {
				acc.sample = append(acc.sample, v)
			}
		}
	}

	out := make([]LabelBreakdown, 0, len(order))
	for _, acc := range order {
		out = append(out, LabelBreakdown{
			Label:        acc.label,
			UniqueValues: len(acc.seen),
			SampleValues: acc.sample,
		})
	}
	slices.SortStableFunc(out, func(a, b LabelBreakdown) int {
		return b.UniqueValues - a.UniqueValues
	})
	return out
}

// NewMetricTree builds the tree for one metric from its fetched series.
// An empty series list yields no labels and a product of 1.
func NewMetricTree(metric string, totalSeries int64, series []RawSeries) *MetricTree {
	labels := BuildMultiplierTree(series)
	product, overflow := labelProduct(labels)
	return &MetricTree{
		Metric:      metric,
		TotalSeries: totalSeries,
		Labels:      labels,
		Product:     product,
		Overflow:    overflow,
	}
}

func labelProduct(labels []LabelBreakdown) (uint64, bool) {
	product := uint64(1)
	for _, l := range labels {
		hi, lo := bits.Mul64(product, uint64(l.UniqueValues))
		if hi != 0 {
			return math.MaxUint64, true
		}
		product = lo
	}
	return product, false
}

// Density is how much of the theoretical label product is actually
// populated, as a rounded percentage. It reports false when the product is
// zero or overflowed, or when the product equals the series count and there
// is nothing to show.
func (t *MetricTree) Density() (int, bool) {
	if t == nil || t.Overflow || t.Product == 0 || uint64(t.TotalSeries) == t.Product {
		return 0, false
	}
	return int(roundHalfUp(100 * float64(t.TotalSeries) / float64(t.Product))), true
}
