package analyzer

import (
	"time"

	"github.com/dustin/go-humanize"
)

// SizeCalculator gives a back-of-the-envelope on-disk size for a number of
// series: series × samples per day × retention days × bytes per sample.
type SizeCalculator struct {
	bytesPerSample float64
	retentionDays  int
	scrapeInterval time.Duration
	samplesPerDay  int64
}

type SizeConfig struct {
	BytesPerSample float64       `mapstructure:"bytes_per_sample"`
	RetentionDays  int           `mapstructure:"retention_days"`
	ScrapeInterval time.Duration `mapstructure:"scrape_interval"`
}

func NewSizeCalculator(cfg SizeConfig) *SizeCalculator {
	if cfg.BytesPerSample == 0 {
		// Typical compressed TSDB sample.
		cfg.BytesPerSample = 1.3
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 15
	}
	if cfg.ScrapeInterval == 0 {
		cfg.ScrapeInterval = 15 * time.Second
	}

	return &SizeCalculator{
		bytesPerSample: cfg.BytesPerSample,
		retentionDays:  cfg.RetentionDays,
		scrapeInterval: cfg.ScrapeInterval,
		samplesPerDay:  int64(24 * time.Hour / cfg.ScrapeInterval),
	}
}

type StorageEstimate struct {
	Bytes          int64   `json:"bytes"`
	Human          string  `json:"human"`
	SamplesPerDay  int64   `json:"samplesPerDay"`
	RetentionDays  int     `json:"retentionDays"`
	BytesPerSample float64 `json:"bytesPerSample"`
}

func (c *SizeCalculator) EstimateBytes(series int64) int64 {
	return int64(float64(series*c.samplesPerDay*int64(c.retentionDays)) * c.bytesPerSample)
}

func (c *SizeCalculator) Estimate(series int64) StorageEstimate {
	b := c.EstimateBytes(series)
	return StorageEstimate{
		Bytes:          b,
		Human:          FormatBytes(b),
		SamplesPerDay:  c.samplesPerDay,
		RetentionDays:  c.retentionDays,
		BytesPerSample: c.bytesPerSample,
	}
}

func FormatBytes(b int64) string {
	return humanize.IBytes(uint64(max(0, b)))
}
