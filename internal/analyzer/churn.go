package analyzer

// ScrapeSeries is one result row of a per-target scrape query.
type ScrapeSeries struct {
	Job      string  `json:"job"`
	Instance string  `json:"instance"`
	Value    float64 `json:"value"`
}

// ChurnSample holds the raw results of the churn queries. A nil pointer
// means the query returned nothing or failed.
type ChurnSample struct {
	HeadSeries            *float64       `json:"headSeries"`
	HeadChunks            *float64       `json:"headChunks"`
	ChunksCreatedRate     *float64       `json:"chunksCreatedRate"`
	SeriesCreatedRate     *float64       `json:"seriesCreatedRate"`
	SeriesRemovedRate     *float64       `json:"seriesRemovedRate"`
	TopSeriesAdded        []ScrapeSeries `json:"topSeriesAdded"`
	TopSamplesPostRelabel []ScrapeSeries `json:"topSamplesPostRelabel"`
}

// ChurnStats adds net churn (created minus removed series per second) and
// severity bands to a sample. A severity is empty when its input is missing.
type ChurnStats struct {
	ChurnSample
	NetChurn           *float64 `json:"netChurn"`
	HeadSeriesSeverity Severity `json:"headSeriesSeverity,omitempty"`
	HeadChunksSeverity Severity `json:"headChunksSeverity,omitempty"`
	NetChurnSeverity   Severity `json:"netChurnSeverity,omitempty"`
}

func (a *Analyzer) ChurnStats(sample ChurnSample) ChurnStats {
	t := a.thresholds
	stats := ChurnStats{ChurnSample: sample}

	if v := sample.HeadSeries; v != nil {
		stats.HeadSeriesSeverity = band(*v, float64(t.ChurnSeriesCritical), float64(t.ChurnSeriesModerate))
	}
	if v := sample.HeadChunks; v != nil {
		stats.HeadChunksSeverity = band(*v, float64(t.ChurnChunksCritical), float64(t.ChurnChunksModerate))
	}
	if sample.SeriesCreatedRate != nil && sample.SeriesRemovedRate != nil {
		net := *sample.SeriesCreatedRate - *sample.SeriesRemovedRate
		stats.NetChurn = &net
		stats.NetChurnSeverity = band(net, t.NetChurnCritical, t.NetChurnModerate)
	}
	return stats
}

func band(v, critical, moderate float64) Severity {
	switch {
	case v > critical:
		return SeverityCritical
	case v > moderate:
		return SeverityModerate
	default:
		return SeverityLow
	}
}
