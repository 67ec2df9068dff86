package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/common/model"

	"github.com/illenko/blacklight/internal/analyzer"
)

const (
	queryHeadSeries            = "prometheus_tsdb_head_series"
	queryHeadChunks            = "prometheus_tsdb_head_chunks"
	queryChunksCreatedRate     = "rate(prometheus_tsdb_head_chunks_created_total[5m])"
	querySeriesCreatedRate     = "rate(prometheus_tsdb_head_series_created_total[5m])"
	querySeriesRemovedRate     = "rate(prometheus_tsdb_head_series_removed_total[5m])"
	queryTopSeriesAdded        = "topk(10, scrape_series_added)"
	queryTopSamplesPostRelabel = "topk(10, scrape_samples_post_metric_relabeling)"
)

// FetchChurn runs the churn queries concurrently. A query that fails or
// returns nothing leaves its field empty; FetchChurn itself never fails.
func (c *Client) FetchChurn(ctx context.Context) analyzer.ChurnSample {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var sample analyzer.ChurnSample
	now := time.Now()

	var wg sync.WaitGroup
	scalar := func(query string, dst **float64) {
		wg.Go(func() {
			vec := c.queryVector(ctx, query, now)
			if len(vec) > 0 {
				v := float64(vec[0].Value)
				*dst = &v
			}
		})
	}
	series := func(query string, dst *[]analyzer.ScrapeSeries) {
		wg.Go(func() {
			vec := c.queryVector(ctx, query, now)
			out := make([]analyzer.ScrapeSeries, 0, len(vec))
			for _, s := range vec {
				out = append(out, analyzer.ScrapeSeries{
					Job:      string(s.Metric["job"]),
					Instance: string(s.Metric["instance"]),
					Value:    float64(s.Value),
				})
			}
			*dst = out
		})
	}

	scalar(queryHeadSeries, &sample.HeadSeries)
	scalar(queryHeadChunks, &sample.HeadChunks)
	scalar(queryChunksCreatedRate, &sample.ChunksCreatedRate)
	scalar(querySeriesCreatedRate, &sample.SeriesCreatedRate)
	scalar(querySeriesRemovedRate, &sample.SeriesRemovedRate)
	series(queryTopSeriesAdded, &sample.TopSeriesAdded)
	series(queryTopSamplesPostRelabel, &sample.TopSamplesPostRelabel)

	wg.Wait()
	return sample
}

// queryVector runs an instant query. Failures are logged and yield nil.
func (c *Client) queryVector(ctx context.Context, query string, ts time.Time) model.Vector {
	val, warnings, err := c.api.Query(ctx, query, ts)
	if err != nil {
		c.logger.Debug("churn query failed", "query", query, "error", &FetchError{Endpoint: EndpointQuery, Err: err})
		return nil
	}
	if len(warnings) > 0 {
		c.logger.Debug("churn query returned warnings", "query", query, "warnings", warnings)
	}

	switch v := val.(type) {
	case model.Vector:
		return v
	case *model.Scalar:
		return model.Vector{{Value: v.Value, Timestamp: v.Timestamp}}
	default:
		return nil
	}
}
