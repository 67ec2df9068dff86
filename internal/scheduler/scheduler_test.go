package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/illenko/blacklight/internal/collector"
)

type fakeRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	result  *collector.CollectResult
	err     error
}

func (f *fakeRefresher) Collect(ctx context.Context, scanID int64) (*collector.CollectResult, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type fakeCleaner struct {
	calls     atomic.Int32
	retention time.Duration
}

func (f *fakeCleaner) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	f.calls.Add(1)
	f.retention = retention
	return 3, nil
}

func TestTriggerRefreshRejectsConcurrentRuns(t *testing.T) {
	r := &fakeRefresher{
		release: make(chan struct{}),
		result:  &collector.CollectResult{Generation: 4, TotalSeries: 100, Targets: 2, Findings: 1},
	}
	cleaner := &fakeCleaner{}
	s := New(r, Config{DB: cleaner, Retention: time.Hour})

	if err := s.TriggerRefresh(); err != nil {
		t.Fatalf("TriggerRefresh() error: %v", err)
	}
	if err := s.TriggerRefresh(); !errors.Is(err, ErrRefreshRunning) {
		t.Fatalf("second TriggerRefresh() error = %v, want ErrRefreshRunning", err)
	}
	if !s.GetStatus().Running {
		t.Error("status should report running")
	}

	close(r.release)
	s.Wait()

	st := s.GetStatus()
	if st.Running || st.Generation != 4 || st.TotalSeries != 100 || st.Findings != 1 {
		t.Errorf("GetStatus() = %+v", st)
	}
	if st.LastRefreshAt.IsZero() || st.LastDuration == "" {
		t.Errorf("timing not recorded: %+v", st)
	}
	if cleaner.calls.Load() != 1 || cleaner.retention != time.Hour {
		t.Errorf("cleanup calls = %d, retention = %v", cleaner.calls.Load(), cleaner.retention)
	}
}

func TestFailedRefreshRecordsErrorAndSkipsCleanup(t *testing.T) {
	r := &fakeRefresher{err: errors.New("prometheus down")}
	cleaner := &fakeCleaner{}
	s := New(r, Config{DB: cleaner})

	if err := s.TriggerRefresh(); err != nil {
		t.Fatalf("TriggerRefresh() error: %v", err)
	}
	s.Wait()

	st := s.GetStatus()
	if st.LastError != "prometheus down" {
		t.Errorf("LastError = %q", st.LastError)
	}
	if cleaner.calls.Load() != 0 {
		t.Error("cleanup should not run after a failed refresh")
	}
}

func TestPartialRefreshIsReported(t *testing.T) {
	r := &fakeRefresher{result: &collector.CollectResult{Generation: 1, TargetsErr: errors.New("targets timeout")}}
	s := New(r, Config{})

	if err := s.TriggerRefresh(); err != nil {
		t.Fatalf("TriggerRefresh() error: %v", err)
	}
	s.Wait()

	st := s.GetStatus()
	if st.LastError != "" || st.PartialError != "targets timeout" {
		t.Errorf("GetStatus() = %+v", st)
	}
}

func TestStartRunsInitialRefreshAndStops(t *testing.T) {
	r := &fakeRefresher{result: &collector.CollectResult{}}
	s := New(r, Config{Interval: time.Hour})

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for r.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial refresh did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.Stop()
	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
