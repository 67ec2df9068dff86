package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/illenko/blacklight/internal/analyzer"
	"github.com/illenko/blacklight/internal/relabel"
)

const (
	DefaultPath = "config.yaml"
	EnvPrefix   = "BLACKLIGHT"
)

type Config struct {
	Prometheus  PrometheusConfig    `mapstructure:"prometheus"`
	Refresh     RefreshConfig       `mapstructure:"refresh"`
	Storage     StorageConfig       `mapstructure:"storage"`
	Server      ServerConfig        `mapstructure:"server"`
	Log         LogConfig           `mapstructure:"log"`
	Remediation RemediationConfig   `mapstructure:"remediation"`
	Thresholds  analyzer.Thresholds `mapstructure:"thresholds"`
	Estimate    analyzer.SizeConfig `mapstructure:"estimate"`
}

type PrometheusConfig struct {
	URL      string        `mapstructure:"url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// StatusLimit caps each TSDB status ranking. Zero keeps Prometheus'
	// own default of 10.
	StatusLimit uint64 `mapstructure:"status_limit"`
}

type RefreshConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	RetentionDays int           `mapstructure:"retention_days"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type RemediationConfig struct {
	Format string `mapstructure:"format"`
}

// Load reads the config file at path (or ./config.yaml) and applies
// BLACKLIGHT_* environment overrides. A missing file is not an error: the
// defaults plus the environment are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("prometheus.url", "http://localhost:9090")
	v.SetDefault("prometheus.username", "")
	v.SetDefault("prometheus.password", "")
	v.SetDefault("prometheus.timeout", "30s")
	v.SetDefault("prometheus.status_limit", 0)
	v.SetDefault("refresh.interval", "5m")
	v.SetDefault("refresh.retention_days", 30)
	v.SetDefault("storage.path", "blacklight.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("remediation.format", string(relabel.FormatOperator))
	v.SetDefault("estimate.bytes_per_sample", 1.3)
	v.SetDefault("estimate.retention_days", 15)
	v.SetDefault("estimate.scrape_interval", "15s")

	t := analyzer.DefaultThresholds
	v.SetDefault("thresholds.high_cardinality_values", t.HighCardinalityValues)
	v.SetDefault("thresholds.histogram_critical_risk", t.HistogramCriticalRisk)
	v.SetDefault("thresholds.histogram_moderate_risk", t.HistogramModerateRisk)
	v.SetDefault("thresholds.metric_series_high", t.MetricSeriesHigh)
	v.SetDefault("thresholds.metric_series_critical", t.MetricSeriesCritical)
	v.SetDefault("thresholds.bucket_series_high", t.BucketSeriesHigh)
	v.SetDefault("thresholds.bucket_series_critical", t.BucketSeriesCritical)
	v.SetDefault("thresholds.dynamic_label_moderate", t.DynamicLabelModerate)
	v.SetDefault("thresholds.dynamic_label_high", t.DynamicLabelHigh)
	v.SetDefault("thresholds.dynamic_label_critical", t.DynamicLabelCritical)
	v.SetDefault("thresholds.fast_scrape_interval", t.FastScrapeInterval)
	v.SetDefault("thresholds.very_fast_scrape_interval", t.VeryFastScrapeInterval)
	v.SetDefault("thresholds.head_series_moderate", t.HeadSeriesModerate)
	v.SetDefault("thresholds.head_series_critical", t.HeadSeriesCritical)
	v.SetDefault("thresholds.churn_series_moderate", t.ChurnSeriesModerate)
	v.SetDefault("thresholds.churn_series_critical", t.ChurnSeriesCritical)
	v.SetDefault("thresholds.churn_chunks_moderate", t.ChurnChunksModerate)
	v.SetDefault("thresholds.churn_chunks_critical", t.ChurnChunksCritical)
	v.SetDefault("thresholds.net_churn_moderate", t.NetChurnModerate)
	v.SetDefault("thresholds.net_churn_critical", t.NetChurnCritical)
}

func (c *Config) Validate() error {
	if c.Prometheus.URL == "" {
		return fmt.Errorf("prometheus.url is required")
	}
	if c.Prometheus.Timeout < 0 {
		return fmt.Errorf("prometheus.timeout must not be negative")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}
	if c.Refresh.RetentionDays < 0 {
		return fmt.Errorf("refresh.retention_days must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.RequestTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if c.Server.WriteTimeout > 0 && c.Server.RequestTimeout > c.Server.WriteTimeout {
		return fmt.Errorf("server.request_timeout must not exceed server.write_timeout")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := relabel.ParseFormat(c.Remediation.Format); err != nil {
		return fmt.Errorf("remediation.format: %w", err)
	}
	if c.Thresholds.HistogramModerateRisk > c.Thresholds.HistogramCriticalRisk {
		return fmt.Errorf("thresholds.histogram_moderate_risk must not exceed histogram_critical_risk")
	}
	return nil
}

func (c *Config) RetentionDuration() time.Duration {
	return time.Duration(c.Refresh.RetentionDays) * 24 * time.Hour
}

func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// LogLevel returns the configured level, falling back to info.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", s)
	}
	return level, nil
}

// AnalyzerConfig is the analyzer's view of the configuration. Validate has
// already rejected an unknown remediation format.
func (c *Config) AnalyzerConfig() analyzer.Config {
	format, _ := relabel.ParseFormat(c.Remediation.Format)
	return analyzer.Config{
		Thresholds:    c.Thresholds,
		SnippetFormat: format,
	}
}

func ConfigFileExists(path string) bool {
	if path == "" {
		path = DefaultPath
	}
	_, err := os.Stat(path)
	return err == nil
}

// DefaultFile is the commented config written by `blacklight init`.
const DefaultFile = `# blacklight configuration
# Every key can be overridden from the environment, e.g.
# BLACKLIGHT_PROMETHEUS_URL=http://prometheus:9090

prometheus:
  url: http://localhost:9090
  # Optional basic auth
  # username: ""
  # password: ""
  timeout: 30s
  # Entries per TSDB status ranking; 0 keeps the server default (10)
  status_limit: 0

refresh:
  interval: 5m        # How often to fetch a new snapshot
  retention_days: 30  # How long to keep snapshot history in SQLite

storage:
  path: blacklight.db

server:
  port: 8080
  host: 0.0.0.0
  read_timeout: 30s
  write_timeout: 60s
  request_timeout: 30s  # Deadline for each API request, including Prometheus calls

log:
  level: info  # debug | info | warn | error

remediation:
  format: operator  # operator (ServiceMonitor sourceLabels) | prometheus (source_labels)

estimate:
  bytes_per_sample: 1.3
  retention_days: 15
  scrape_interval: 15s

# Overrides for the shared threshold table. Omitted keys keep the defaults.
thresholds:
  high_cardinality_values: 1000
  metric_series_high: 10000
  metric_series_critical: 50000
  bucket_series_high: 5000
  bucket_series_critical: 20000
  dynamic_label_moderate: 100
  dynamic_label_high: 1000
  dynamic_label_critical: 10000
  fast_scrape_interval: 15s
`
