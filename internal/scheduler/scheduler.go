package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/illenko/blacklight/internal/collector"
)

// Refresher is the collector as seen by the scheduler.
type Refresher interface {
	Collect(ctx context.Context, scanID int64) (*collector.CollectResult, error)
}

// Cleaner drops history older than the retention window.
type Cleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

type Scheduler struct {
	collector Refresher
	db        Cleaner
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
	status    *RefreshStatus
	mu        sync.RWMutex
	scanIDSeq atomic.Int64
	logger    *slog.Logger
	parentCtx context.Context // set by Start, used for triggered refreshes
	scanWg    sync.WaitGroup  // tracks async triggered refreshes
}

type RefreshStatus struct {
	Running       bool      `json:"running"`
	LastRefreshAt time.Time `json:"last_refresh_at,omitzero"`
	LastDuration  string    `json:"last_duration,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	// PartialError is set when one of the two fetches failed but the
	// refresh still applied the other.
	PartialError string    `json:"partial_error,omitempty"`
	NextRefresh  time.Time `json:"next_refresh_at,omitzero"`
	Generation   uint64    `json:"generation,omitempty"`
	TotalSeries  int64     `json:"total_series,omitempty"`
	Targets      int       `json:"targets,omitempty"`
	Findings     int       `json:"findings,omitempty"`
}

type Config struct {
	Interval  time.Duration
	Retention time.Duration
	DB        Cleaner
}

func New(collector Refresher, cfg Config) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Retention == 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}

	return &Scheduler{
		collector: collector,
		db:        cfg.DB,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		stopCh:    make(chan struct{}),
		status:    &RefreshStatus{},
		logger:    slog.Default().With("component", "scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.parentCtx = ctx
	s.mu.Unlock()
	s.logger.Info("starting scheduler", "interval", s.interval)

	// Run initial refresh
	s.executeRefresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		s.status.NextRefresh = time.Now().Add(s.interval)
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			s.scanWg.Wait()
			s.logger.Info("scheduler stopped")
			return
		case <-s.stopCh:
			s.scanWg.Wait()
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.executeRefresh(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// TriggerRefresh starts a refresh in the background. It returns
// ErrRefreshRunning if one is already in progress.
func (s *Scheduler) TriggerRefresh() error {
	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		return ErrRefreshRunning
	}
	s.status.Running = true
	s.status.LastError = ""
	ctx := s.parentCtx
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	s.scanWg.Add(1)
	go func() {
		defer s.scanWg.Done()
		s.doRefresh(ctx)
	}()
	return nil
}

// Wait blocks until triggered refreshes have finished.
func (s *Scheduler) Wait() {
	s.scanWg.Wait()
}

func (s *Scheduler) GetStatus() RefreshStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.status
}

// executeRefresh acquires the running flag and refreshes synchronously.
func (s *Scheduler) executeRefresh(ctx context.Context) {
	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		return
	}
	s.status.Running = true
	s.status.LastError = ""
	s.mu.Unlock()

	s.doRefresh(ctx)
}

// doRefresh runs the refresh. Caller must have already set status.Running.
func (s *Scheduler) doRefresh(ctx context.Context) {
	scanID := s.scanIDSeq.Add(1)
	start := time.Now()

	logger := s.logger.With("scan_id", scanID)
	logger.Debug("starting refresh")

	result, err := s.collector.Collect(ctx, scanID)

	s.mu.Lock()
	s.status.Running = false
	s.status.LastRefreshAt = start
	s.status.LastDuration = time.Since(start).String()
	s.status.PartialError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	if result != nil {
		s.status.Generation = result.Generation
		s.status.TotalSeries = result.TotalSeries
		s.status.Targets = result.Targets
		s.status.Findings = result.Findings
		for _, partial := range []error{result.SnapshotErr, result.TargetsErr} {
			if partial != nil {
				s.status.PartialError = partial.Error()
			}
		}
	}
	s.mu.Unlock()

	if err != nil {
		logger.Error("refresh failed", "error", err)
		if result == nil {
			return
		}
	}

	s.runCleanup(ctx, scanID)
}

func (s *Scheduler) runCleanup(ctx context.Context, scanID int64) {
	if s.db == nil || s.retention == 0 {
		return
	}

	deleted, err := s.db.Cleanup(ctx, s.retention)
	if err != nil {
		s.logger.Error("cleanup failed", "scan_id", scanID, "error", err)
		return
	}

	if deleted > 0 {
		s.logger.Info("cleanup completed", "scan_id", scanID, "deleted_rows", deleted)
	}
}

type refreshError string

func (e refreshError) Error() string { return string(e) }

const ErrRefreshRunning = refreshError("refresh already running")
