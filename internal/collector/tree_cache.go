package collector

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/illenko/blacklight/internal/analyzer"
)

type TreeStatus string

const (
	TreeLoading TreeStatus = "loading"
	TreeReady   TreeStatus = "ready"
	TreeFailure TreeStatus = "failed"
)

type treeError string

func (e treeError) Error() string { return string(e) }

// ErrTreeSuperseded is returned by Expand when the metric was collapsed,
// expanded again, or the snapshot changed while its series were loading.
// The result was thrown away.
const ErrTreeSuperseded = treeError("tree request superseded")

type SeriesSource interface {
	FetchRawSeries(ctx context.Context, metric string) ([]analyzer.RawSeries, error)
}

type StateSource interface {
	State() *State
}

// TreeEntry is one expanded metric.
type TreeEntry struct {
	Metric     string               `json:"metric"`
	Status     TreeStatus           `json:"status"`
	Tree       *analyzer.MetricTree `json:"tree,omitempty"`
	Density    *int                 `json:"density,omitempty"`
	Error      string               `json:"error,omitempty"`
	Generation uint64               `json:"generation"`
	UpdatedAt  time.Time            `json:"updated_at"`

	token uint64
}

// TreeCache memoizes multiplier trees per metric name for the current
// snapshot generation. Every Expand takes a fresh token for its metric; a
// fetch result is kept only while that token is still the metric's latest
// and the generation has not moved, so a slow response for one request can
// never overwrite a newer one.
type TreeCache struct {
	source  SeriesSource
	state   StateSource
	metrics *Metrics

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*TreeEntry
	tokens  uint64
	logger  *slog.Logger
}

func NewTreeCache(source SeriesSource, state StateSource, metrics *Metrics) *TreeCache {
	return &TreeCache{
		source:  source,
		state:   state,
		metrics: metrics,
		entries: make(map[string]*TreeEntry),
		logger:  slog.Default().With("component", "tree_cache"),
	}
}

// Expand loads the metric's raw series and builds its tree. Concurrent
// expansions of the same metric in the same generation share one fetch.
func (c *TreeCache) Expand(ctx context.Context, metric string) (TreeEntry, error) {
	st := c.state.State()
	gen := st.Generation
	total, _ := st.Snapshot.MetricSeries(metric)

	c.mu.Lock()
	c.tokens++
	token := c.tokens
	c.entries[metric] = &TreeEntry{
		Metric:     metric,
		Status:     TreeLoading,
		Generation: gen,
		UpdatedAt:  time.Now(),
		token:      token,
	}
	c.mu.Unlock()

	key := metric + "@" + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.source.FetchRawSeries(ctx, metric)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[metric]
	if !ok || cur.token != token || c.state.State().Generation != gen {
		c.metrics.observeTree(TreeDiscarded)
		c.logger.Debug("discarding superseded tree", "metric", metric, "generation", gen)
		return TreeEntry{}, ErrTreeSuperseded
	}

	cur.UpdatedAt = time.Now()
	if err != nil {
		cur.Status = TreeFailure
		cur.Error = err.Error()
		c.metrics.observeTree(TreeFailed)
		c.logger.Warn("failed to load series", "metric", metric, "error", err)
		return *cur, err
	}

	series, _ := v.([]analyzer.RawSeries)
	cur.Status = TreeReady
	cur.Tree = analyzer.NewMetricTree(metric, total, series)
	if d, ok := cur.Tree.Density(); ok {
		cur.Density = &d
	}
	c.metrics.observeTree(TreeStored)
	return *cur, nil
}

// Get returns the entry for a metric. Entries built for an older snapshot
// are dropped on access.
func (c *TreeCache) Get(metric string) (TreeEntry, bool) {
	gen := c.state.State().Generation

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[metric]
	if !ok {
		return TreeEntry{}, false
	}
	if e.Generation != gen && e.Status != TreeLoading {
		delete(c.entries, metric)
		return TreeEntry{}, false
	}
	return *e, true
}

// Collapse forgets a metric. A fetch still in flight for it is discarded
// when it completes.
func (c *TreeCache) Collapse(metric string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, metric)
}

// Entries lists the current-generation entries ordered by metric name.
func (c *TreeCache) Entries() []TreeEntry {
	gen := c.state.State().Generation

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]TreeEntry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Generation == gen || e.Status == TreeLoading {
			out = append(out, *e)
		}
	}
	slices.SortFunc(out, func(a, b TreeEntry) int {
		return strings.Compare(a.Metric, b.Metric)
	})
	return out
}
