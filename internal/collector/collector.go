// Package collector keeps the current snapshot and target set, refreshes
// them from Prometheus, and records each refresh in history.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/illenko/blacklight/internal/analyzer"
	promclient "github.com/illenko/blacklight/internal/prometheus"
	"github.com/illenko/blacklight/internal/storage"
	"github.com/illenko/blacklight/pkg/models"
)

// Source is the part of the Prometheus client a refresh needs.
type Source interface {
	FetchSnapshot(ctx context.Context, limit uint64) (*analyzer.Snapshot, error)
	FetchTargets(ctx context.Context) (*analyzer.TargetSet, error)
}

// State is what the collector currently knows. It is replaced wholesale on
// every refresh and must not be modified by readers.
type State struct {
	// Generation increases each time a new snapshot is accepted.
	Generation    uint64              `json:"generation"`
	Snapshot      *analyzer.Snapshot  `json:"-"`
	Targets       *analyzer.TargetSet `json:"-"`
	SnapshotError string              `json:"snapshot_error,omitempty"`
	TargetsError  string              `json:"targets_error,omitempty"`
	LastAttemptAt time.Time           `json:"last_attempt_at,omitzero"`
}

type Config struct {
	StatusLimit uint64
	Analyzer    *analyzer.Analyzer
	Snapshots   *storage.SnapshotsRepository
	Metrics     *storage.MetricsRepository
	Findings    *storage.FindingsRepository
	Telemetry   *Metrics
}

type Collector struct {
	source      Source
	analyzer    *analyzer.Analyzer
	snapshots   *storage.SnapshotsRepository
	metrics     *storage.MetricsRepository
	findings    *storage.FindingsRepository
	telemetry   *Metrics
	statusLimit uint64

	// mu serializes writers; readers go through state without locking.
	mu     sync.Mutex
	state  atomic.Pointer[State]
	logger *slog.Logger
}

func New(source Source, cfg Config) *Collector {
	if cfg.Analyzer == nil {
		cfg.Analyzer = analyzer.New(analyzer.Config{})
	}

	c := &Collector{
		source:      source,
		analyzer:    cfg.Analyzer,
		snapshots:   cfg.Snapshots,
		metrics:     cfg.Metrics,
		findings:    cfg.Findings,
		telemetry:   cfg.Telemetry,
		statusLimit: cfg.StatusLimit,
		logger:      slog.Default().With("component", "collector"),
	}
	c.state.Store(&State{})
	return c
}

// State returns the current state. It is never nil.
func (c *Collector) State() *State {
	return c.state.Load()
}

// Restore seeds the state with a snapshot loaded from history, so the API
// has something to serve before the first refresh completes. It does
// nothing once a snapshot is present.
func (c *Collector) Restore(snap *analyzer.Snapshot) {
	if snap == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.state.Load()
	if cur.Snapshot != nil {
		return
	}
	next := *cur
	next.Snapshot = snap
	next.Generation++
	c.state.Store(&next)
	c.logger.Info("restored snapshot from history", "collected_at", snap.CollectedAt(), "series", snap.TotalSeries())
}

type CollectResult struct {
	Generation  uint64
	TotalSeries int64
	Targets     int
	Findings    int
	// SnapshotErr and TargetsErr are set when that half of the refresh
	// failed; the other half is still applied.
	SnapshotErr error
	TargetsErr  error
	Duration    time.Duration
}

// Collect fetches a snapshot and the target set concurrently. Each fetch
// that succeeds replaces its half of the state; a failed fetch leaves the
// previous value in place and records the error. Collect fails only when
// both fetches fail.
func (c *Collector) Collect(ctx context.Context, scanID int64) (*CollectResult, error) {
	logger := c.logger.With("scan_id", scanID)
	start := time.Now()

	var (
		snap    *analyzer.Snapshot
		targets *analyzer.TargetSet
		snapErr error
		tgtErr  error
	)

	var wg sync.WaitGroup
	wg.Go(func() {
		snap, snapErr = c.source.FetchSnapshot(ctx, c.statusLimit)
	})
	wg.Go(func() {
		targets, tgtErr = c.source.FetchTargets(ctx)
	})
	wg.Wait()

	next := c.apply(start, snap, snapErr, targets, tgtErr)

	result := &CollectResult{
		Generation:  next.Generation,
		TotalSeries: next.Snapshot.TotalSeries(),
		Targets:     next.Targets.Len(),
		SnapshotErr: snapErr,
		TargetsErr:  tgtErr,
	}

	for _, err := range []error{snapErr, tgtErr} {
		if err == nil {
			continue
		}
		endpoint := "unknown"
		var fe *promclient.FetchError
		if errors.As(err, &fe) {
			endpoint = fe.Endpoint
		}
		c.telemetry.observeFetchError(endpoint)
		logger.Warn("fetch failed", "endpoint", endpoint, "error", err)
	}

	if tgtErr == nil {
		c.telemetry.observeTargets(targets)
	}

	var persistErr error
	if snapErr == nil {
		findings := c.analyzer.Recommend(snap, next.Targets)
		result.Findings = len(findings)
		c.telemetry.observeSnapshot(snap, findings)
		persistErr = c.persist(ctx, snap, next.Targets, findings)
		if persistErr != nil {
			logger.Error("failed to record snapshot", "error", persistErr)
		}
	}

	result.Duration = time.Since(start)

	switch {
	case snapErr != nil && tgtErr != nil:
		c.telemetry.observeRefresh(ResultFailure, result.Duration)
		return nil, fmt.Errorf("failed to refresh: %w", errors.Join(snapErr, tgtErr))
	case snapErr != nil || tgtErr != nil:
		c.telemetry.observeRefresh(ResultPartial, result.Duration)
	default:
		c.telemetry.observeRefresh(ResultSuccess, result.Duration)
	}

	logger.Info("refresh complete",
		"generation", result.Generation,
		"series", result.TotalSeries,
		"targets", result.Targets,
		"findings", result.Findings,
		"duration", result.Duration,
	)

	return result, persistErr
}

func (c *Collector) apply(at time.Time, snap *analyzer.Snapshot, snapErr error, targets *analyzer.TargetSet, tgtErr error) *State {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := *c.state.Load()
	next.LastAttemptAt = at

	if snapErr != nil {
		next.SnapshotError = snapErr.Error()
	} else {
		next.Snapshot = snap
		next.SnapshotError = ""
		next.Generation++
	}

	if tgtErr != nil {
		next.TargetsError = tgtErr.Error()
	} else {
		next.Targets = targets
		next.TargetsError = ""
	}

	c.state.Store(&next)
	return &next
}

func (c *Collector) persist(ctx context.Context, snap *analyzer.Snapshot, targets *analyzer.TargetSet, findings []analyzer.Finding) error {
	if c.snapshots != nil {
		o := c.analyzer.BuildOverview(snap, targets, nil)
		summary := &models.SnapshotSummary{
			CollectedAt:  snap.CollectedAt().Truncate(time.Second),
			TotalSeries:  o.TotalSeries,
			LabelPairs:   o.LabelPairs,
			ChunkCount:   o.ChunkCount,
			MetricCount:  o.MetricCount,
			LabelCount:   o.LabelCount,
			TargetsUp:    o.TargetsUp,
			TargetsTotal: o.TargetsTotal,
		}
		if err := c.snapshots.Save(ctx, summary, snap); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
	}

	if c.metrics != nil {
		if err := c.metrics.SaveBatch(ctx, snap.CollectedAt().Truncate(time.Second), snap.SeriesByMetric()); err != nil {
			return fmt.Errorf("failed to save metric history: %w", err)
		}
	}

	if c.findings != nil {
		if err := c.findings.Touch(ctx, snap.CollectedAt(), findings); err != nil {
			return fmt.Errorf("failed to save findings: %w", err)
		}
	}

	return nil
}
