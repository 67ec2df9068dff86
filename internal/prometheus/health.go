package prometheus

import (
	"context"
	"errors"
	"sync"
	"time"
)

type EndpointHealth struct {
	Endpoint  string `json:"endpoint"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

type HealthReport struct {
	Endpoints []EndpointHealth `json:"endpoints"`
}

// Healthy reports whether every probed endpoint answered.
func (r *HealthReport) Healthy() bool {
	for _, e := range r.Endpoints {
		if !e.OK {
			return false
		}
	}
	return len(r.Endpoints) > 0
}

// Err joins the failures of all endpoints, or returns nil.
func (r *HealthReport) Err() error {
	var errs []error
	for _, e := range r.Endpoints {
		if !e.OK {
			errs = append(errs, &FetchError{Endpoint: e.Endpoint, Err: errors.New(e.Error)})
		}
	}
	return errors.Join(errs...)
}

// HealthCheck probes the endpoints the tool depends on concurrently. Each
// endpoint is reported on its own; one failing does not stop the others.
func (c *Client) HealthCheck(ctx context.Context) *HealthReport {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	probes := []struct {
		endpoint string
		fn       func(context.Context) error
	}{
		{EndpointRuntime, func(ctx context.Context) error {
			_, err := c.api.Runtimeinfo(ctx)
			return err
		}},
		{EndpointTSDB, func(ctx context.Context) error {
			_, err := c.api.TSDB(ctx)
			return err
		}},
		{EndpointTargets, func(ctx context.Context) error {
			_, err := c.FetchTargets(ctx)
			return err
		}},
		{EndpointConfig, func(ctx context.Context) error {
			_, err := c.api.Config(ctx)
			return err
		}},
	}

	report := &HealthReport{Endpoints: make([]EndpointHealth, len(probes))}
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Go(func() {
			start := time.Now()
			err := p.fn(ctx)
			h := EndpointHealth{Endpoint: p.endpoint, OK: err == nil, LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				h.Error = err.Error()
			}
			report.Endpoints[i] = h
		})
	}
	wg.Wait()

	for _, e := range report.Endpoints {
		if !e.OK {
			c.logger.Warn("prometheus endpoint unhealthy", "endpoint", e.Endpoint, "error", e.Error)
		}
	}
	return report
}
