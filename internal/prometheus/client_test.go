package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/illenko/blacklight/internal/analyzer"
)

const tsdbBody = `{"status":"success","data":{
	"headStats":{"numSeries":20800,"numLabelPairs":120,"chunkCount":4000,"minTime":1,"maxTime":2},
	"seriesCountByMetricName":[{"name":"http_requests_total","value":12000},{"name":"up","value":3}],
	"labelValueCountByLabelName":[{"name":"path","value":3000}],
	"memoryInBytesByLabelName":[],
	"seriesCountByLabelValuePair":[{"name":"job=node","value":50}]
}}`

const targetsBody = `{"status":"success","data":{"activeTargets":[
	{"labels":{"job":"node","instance":"a:9100"},"scrapePool":"node","health":"up","scrapeInterval":"10s","lastScrapeDuration":0.25,"lastError":""},
	{"labels":{"instance":"b:9100"},"scrapePool":"pool-b","health":"down","scrapeInterval":"1m","lastScrapeDuration":0,"lastError":"connection refused"},
	{"labels":{},"scrapePool":"","health":"weird","scrapeInterval":"","lastScrapeDuration":0}
],"droppedTargets":[]}}`

func newFakePrometheus(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status/tsdb", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "" && got != "25" {
			t.Errorf("limit = %q, want 25", got)
		}
		fmt.Fprint(w, tsdbBody)
	})
	mux.HandleFunc("/api/v1/targets", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "active" {
			t.Errorf("state = %q, want active", got)
		}
		fmt.Fprint(w, targetsBody)
	})
	mux.HandleFunc("/api/v1/series", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		if got := r.Form.Get("match[]"); got != `{__name__="http_requests_total"}` {
			t.Errorf("match[] = %q", got)
		}
		fmt.Fprint(w, `{"status":"success","data":[
			{"__name__":"http_requests_total","path":"/a","status":"200"},
			{"__name__":"http_requests_total","path":"/b","status":"200"}
		]}`)
	})
	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		switch q := r.Form.Get("query"); {
		case q == queryHeadSeries:
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,"2500000"]}]}}`)
		case q == querySeriesCreatedRate:
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,"12.5"]}]}}`)
		case q == querySeriesRemovedRate:
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,"0.5"]}]}}`)
		case strings.HasPrefix(q, "topk(10, scrape_series_added"):
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[
				{"metric":{"job":"node","instance":"a"},"value":[1700000000,"40"]}
			]}}`)
		case q == queryHeadChunks:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"status":"error","errorType":"bad_data","error":"boom"}`)
		default:
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[]}}`)
		}
	})
	mux.HandleFunc("/api/v1/status/config", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","data":{"yaml":"global:\n  scrape_interval: 30s\n"}}`)
	})
	mux.HandleFunc("/api/v1/status/runtimeinfo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","data":{"startTime":"2026-01-01T00:00:00Z","CWD":"/","reloadConfigSuccess":true,"lastConfigTime":"2026-01-01T00:00:00Z","corruptionCount":0,"goroutineCount":1,"GOMAXPROCS":1,"GOGC":"","GODEBUG":"","storageRetention":"15d"}}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{URL: url, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

func TestFetchSnapshot(t *testing.T) {
	srv := newFakePrometheus(t)
	c := newTestClient(t, srv.URL)

	s, err := c.FetchSnapshot(context.Background(), 25)
	if err != nil {
		t.Fatalf("FetchSnapshot() error: %v", err)
	}
	if got := s.TotalSeries(); got != 20800 {
		t.Errorf("TotalSeries() = %d, want 20800", got)
	}
	if got := s.HeadStats().ChunkCount; got != 4000 {
		t.Errorf("ChunkCount = %d, want 4000", got)
	}
	want := []analyzer.NameCount{{Name: "http_requests_total", Value: 12000}, {Name: "up", Value: 3}}
	if diff := cmp.Diff(want, s.SeriesByMetric()); diff != "" {
		t.Errorf("SeriesByMetric mismatch (-want +got):\n%s", diff)
	}
	if v, _ := s.LabelValues("path"); v != 3000 {
		t.Errorf("LabelValues(path) = %d, want 3000", v)
	}
	if got := len(s.SeriesByLabelPair()); got != 1 {
		t.Errorf("SeriesByLabelPair has %d entries, want 1", got)
	}
}

func TestFetchTargets(t *testing.T) {
	srv := newFakePrometheus(t)
	c := newTestClient(t, srv.URL)

	ts, err := c.FetchTargets(context.Background())
	if err != nil {
		t.Fatalf("FetchTargets() error: %v", err)
	}
	want := []analyzer.Target{
		{Job: "node", Instance: "a:9100", Health: analyzer.HealthUp, ScrapeInterval: "10s", LastScrapeDurationSeconds: 0.25},
		{Job: "pool-b", Instance: "b:9100", Health: analyzer.HealthDown, ScrapeInterval: "1m", LastError: "connection refused"},
		{Job: "unknown", Health: analyzer.HealthUnknown},
	}
	if diff := cmp.Diff(want, ts.Targets()); diff != "" {
		t.Errorf("Targets mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchRawSeries(t *testing.T) {
	srv := newFakePrometheus(t)
	c := newTestClient(t, srv.URL)

	series, err := c.FetchRawSeries(context.Background(), "http_requests_total")
	if err != nil {
		t.Fatalf("FetchRawSeries() error: %v", err)
	}
	want := []analyzer.RawSeries{
		{"__name__": "http_requests_total", "path": "/a", "status": "200"},
		{"__name__": "http_requests_total", "path": "/b", "status": "200"},
	}
	if diff := cmp.Diff(want, series); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchErrorsAreTagged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","errorType":"unauthorized","error":"bad credentials"}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.FetchSnapshot(context.Background(), 0)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Endpoint != EndpointTSDB {
		t.Errorf("FetchSnapshot() error = %v, want FetchError for tsdb", err)
	}

	_, err = c.FetchTargets(context.Background())
	if !errors.As(err, &fe) || fe.Endpoint != EndpointTargets {
		t.Errorf("FetchTargets() error = %v, want FetchError for targets", err)
	}
	if !strings.Contains(err.Error(), "bad credentials") {
		t.Errorf("FetchTargets() error = %v, want server message", err)
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.FetchRawSeries(context.Background(), "up")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Endpoint != EndpointSeries {
		t.Errorf("FetchRawSeries() error = %v, want FetchError for series", err)
	}
}

func TestMetricSelector(t *testing.T) {
	got, err := MetricSelector("http_requests_total")
	if err != nil || got != `{__name__="http_requests_total"}` {
		t.Errorf("MetricSelector() = %q, %v", got, err)
	}
	if _, err := MetricSelector(`weird"name`); err != nil {
		t.Errorf("quoted names should be accepted: %v", err)
	}
}

func TestFetchChurn(t *testing.T) {
	srv := newFakePrometheus(t)
	c := newTestClient(t, srv.URL)

	sample := c.FetchChurn(context.Background())
	if sample.HeadSeries == nil || *sample.HeadSeries != 2500000 {
		t.Errorf("HeadSeries = %v, want 2500000", sample.HeadSeries)
	}
	if sample.HeadChunks != nil {
		t.Errorf("HeadChunks = %v, want nil for a failing query", *sample.HeadChunks)
	}
	if sample.ChunksCreatedRate != nil {
		t.Errorf("ChunksCreatedRate = %v, want nil for an empty result", *sample.ChunksCreatedRate)
	}
	want := []analyzer.ScrapeSeries{{Job: "node", Instance: "a", Value: 40}}
	if diff := cmp.Diff(want, sample.TopSeriesAdded); diff != "" {
		t.Errorf("TopSeriesAdded mismatch (-want +got):\n%s", diff)
	}

	stats := analyzer.New(analyzer.Config{}).ChurnStats(sample)
	if stats.NetChurn == nil || *stats.NetChurn != 12 {
		t.Errorf("NetChurn = %v, want 12", stats.NetChurn)
	}
}

func TestScrapeInterval(t *testing.T) {
	srv := newFakePrometheus(t)
	c := newTestClient(t, srv.URL)

	d, ok := c.ScrapeInterval(context.Background())
	if !ok || d != 30*time.Second {
		t.Errorf("ScrapeInterval() = %v, %v; want 30s, true", d, ok)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := newFakePrometheus(t)
	c := newTestClient(t, srv.URL)

	report := c.HealthCheck(context.Background())
	if len(report.Endpoints) != 4 {
		t.Fatalf("HealthCheck() probed %d endpoints, want 4", len(report.Endpoints))
	}
	for _, e := range report.Endpoints {
		if !e.OK {
			t.Errorf("endpoint %s unhealthy: %s", e.Endpoint, e.Error)
		}
	}
	if !report.Healthy() || report.Err() != nil {
		t.Errorf("Healthy() = %v, Err() = %v", report.Healthy(), report.Err())
	}
}

func TestHealthCheckReportsEachEndpoint(t *testing.T) {
	fake := newFakePrometheus(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/targets" {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"status":"error","errorType":"unavailable","error":"scrape manager not ready"}`)
			return
		}
		fake.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	report := c.HealthCheck(context.Background())
	var unhealthy []string
	for _, e := range report.Endpoints {
		if !e.OK {
			unhealthy = append(unhealthy, e.Endpoint)
		}
	}
	if diff := cmp.Diff([]string{EndpointTargets}, unhealthy); diff != "" {
		t.Errorf("unhealthy endpoints mismatch (-want +got):\n%s", diff)
	}
	if report.Healthy() {
		t.Error("Healthy() = true, want false")
	}
	var fe *FetchError
	if err := report.Err(); !errors.As(err, &fe) || fe.Endpoint != EndpointTargets {
		t.Errorf("Err() = %v, want FetchError for %s", err, EndpointTargets)
	}
}

func TestBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"status":"error","errorType":"unauthorized","error":"nope"}`)
			return
		}
		fmt.Fprint(w, tsdbBody)
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL, Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if _, err := c.FetchSnapshot(context.Background(), 0); err != nil {
		t.Errorf("FetchSnapshot() with basic auth error: %v", err)
	}
}
