package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/promql/parser"
	"go.yaml.in/yaml/v2"

	"github.com/illenko/blacklight/internal/analyzer"
)

const targetsPath = "/api/v1/targets"

// FetchSnapshot reads the TSDB status endpoint.
func (c *Client) FetchSnapshot(ctx context.Context, limit uint64) (*analyzer.Snapshot, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var opts []v1.Option
	if limit > 0 {
		opts = append(opts, v1.WithLimit(limit))
	}

	res, err := c.api.TSDB(ctx, opts...)
	if err != nil {
		return nil, &FetchError{Endpoint: EndpointTSDB, Err: err}
	}

	head := analyzer.HeadStats{
		NumSeries:     int64(res.HeadStats.NumSeries),
		NumLabelPairs: int64(res.HeadStats.NumLabelPairs),
		ChunkCount:    int64(res.HeadStats.ChunkCount),
		MinTime:       int64(res.HeadStats.MinTime),
		MaxTime:       int64(res.HeadStats.MaxTime),
	}

	return analyzer.NewSnapshot(
		time.Now(),
		head,
		statsToCounts(res.SeriesCountByMetricName),
		statsToCounts(res.LabelValueCountByLabelName),
		statsToCounts(res.SeriesCountByLabelValuePair),
	), nil
}

// targetsResponse mirrors /api/v1/targets. client_golang's ActiveTarget
// does not carry scrapeInterval, so the envelope is decoded here.
type targetsResponse struct {
	Status    string `json:"status"`
	ErrorType string `json:"errorType"`
	Error     string `json:"error"`
	Data      struct {
		ActiveTargets []activeTarget `json:"activeTargets"`
	} `json:"data"`
}

type activeTarget struct {
	Labels             map[string]string `json:"labels"`
	ScrapePool         string            `json:"scrapePool"`
	Health             string            `json:"health"`
	ScrapeInterval     string            `json:"scrapeInterval"`
	LastScrapeDuration float64           `json:"lastScrapeDuration"`
	LastError          string            `json:"lastError"`
}

// FetchTargets reads the active scrape targets. The job is the target's job
// label, falling back to its scrape pool.
func (c *Client) FetchTargets(ctx context.Context) (*analyzer.TargetSet, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	u := c.raw.URL(targetsPath, nil)
	q := u.Query()
	q.Set("state", "active")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{Endpoint: EndpointTargets, Err: err}
	}

	resp, body, err := c.raw.Do(ctx, req)
	if err != nil {
		return nil, &FetchError{Endpoint: EndpointTargets, Err: err}
	}

	var res targetsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &FetchError{Endpoint: EndpointTargets, Err: fmt.Errorf("HTTP %d: failed to decode response: %w", resp.StatusCode, err)}
	}
	if res.Status != "success" {
		return nil, &FetchError{Endpoint: EndpointTargets, Err: fmt.Errorf("HTTP %d: %s: %s", resp.StatusCode, res.ErrorType, res.Error)}
	}

	targets := make([]analyzer.Target, 0, len(res.Data.ActiveTargets))
	for _, t := range res.Data.ActiveTargets {
		job := t.Labels["job"]
		if job == "" {
			job = t.ScrapePool
		}
		if job == "" {
			job = "unknown"
		}
		targets = append(targets, analyzer.Target{
			Job:                       job,
			Instance:                  t.Labels["instance"],
			Health:                    analyzer.ParseHealth(t.Health),
			ScrapeInterval:            t.ScrapeInterval,
			LastScrapeDurationSeconds: t.LastScrapeDuration,
			LastError:                 t.LastError,
		})
	}

	return analyzer.NewTargetSet(time.Now(), targets), nil
}

// MetricSelector returns the series selector matching every series of one
// metric. The name is quoted so that any UTF-8 metric name is accepted.
func MetricSelector(metric string) (string, error) {
	sel := fmt.Sprintf("{%s=%q}", model.MetricNameLabel, metric)
	expr, err := parser.ParseExpr(sel)
	if err != nil {
		return "", fmt.Errorf("invalid metric name %q: %w", metric, err)
	}
	if _, ok := expr.(*parser.VectorSelector); !ok {
		return "", fmt.Errorf("invalid metric name %q: not a series selector", metric)
	}
	return sel, nil
}

// FetchRawSeries lists every series of one metric.
func (c *Client) FetchRawSeries(ctx context.Context, metric string) ([]analyzer.RawSeries, error) {
	sel, err := MetricSelector(metric)
	if err != nil {
		return nil, &FetchError{Endpoint: EndpointSeries, Err: err}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	sets, warnings, err := c.api.Series(ctx, []string{sel}, time.Time{}, time.Time{})
	if err != nil {
		return nil, &FetchError{Endpoint: EndpointSeries, Err: err}
	}
	if len(warnings) > 0 {
		c.logger.Warn("series query returned warnings", "metric", metric, "warnings", warnings)
	}

	out := make([]analyzer.RawSeries, 0, len(sets))
	for _, set := range sets {
		s := make(analyzer.RawSeries, len(set))
		for k, v := range set {
			s[string(k)] = string(v)
		}
		out = append(out, s)
	}
	return out, nil
}

// ScrapeInterval reads global.scrape_interval from the running
// configuration. It reports false if the configuration cannot be read or
// does not set it.
func (c *Client) ScrapeInterval(ctx context.Context) (time.Duration, bool) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.api.Config(ctx)
	if err != nil {
		c.logger.Warn("failed to get prometheus config", "error", err)
		return 0, false
	}
	d, err := globalScrapeInterval(res.YAML)
	if err != nil {
		c.logger.Warn("failed to parse prometheus config", "error", err)
		return 0, false
	}
	return d, d > 0
}

func statsToCounts(stats []v1.Stat) []analyzer.NameCount {
	out := make([]analyzer.NameCount, 0, len(stats))
	for _, s := range stats {
		out = append(out, analyzer.NameCount{Name: s.Name, Value: int64(min(s.Value, math.MaxInt64))})
	}
	return out
}

type promConfig struct {
	Global struct {
		ScrapeInterval string `yaml:"scrape_interval"`
	} `yaml:"global"`
}

func globalScrapeInterval(raw string) (time.Duration, error) {
	var cfg promConfig
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		return 0, err
	}
	if cfg.Global.ScrapeInterval == "" {
		return 0, nil
	}
	d, err := model.ParseDuration(cfg.Global.ScrapeInterval)
	if err != nil {
		return 0, err
	}
	return time.Duration(d), nil
}
