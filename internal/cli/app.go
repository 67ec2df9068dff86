package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/illenko/blacklight/internal/analyzer"
	"github.com/illenko/blacklight/internal/config"
	promclient "github.com/illenko/blacklight/internal/prometheus"
	"github.com/illenko/blacklight/internal/secrets"
	"github.com/illenko/blacklight/internal/storage"
	"github.com/illenko/blacklight/pkg/models"
)

// app holds what every command needs: the config, the database and the
// repositories built on it.
type app struct {
	cfg         *config.Config
	db          *storage.DB
	snapshots   *storage.SnapshotsRepository
	metrics     *storage.MetricsRepository
	findings    *storage.FindingsRepository
	connections *storage.ConnectionsRepository
	simulations *storage.SimulationsRepository
}

// newApp loads the config, installs the default logger writing to logOut
// and opens the database.
func newApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logLevel := cfg.LogLevel()
	if verbose || os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: logLevel})))

	db, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	kv := storage.NewKVStore(db)
	return &app{
		cfg:         cfg,
		db:          db,
		snapshots:   storage.NewSnapshotsRepository(db),
		metrics:     storage.NewMetricsRepository(db),
		findings:    storage.NewFindingsRepository(db),
		connections: storage.NewConnectionsRepository(kv, secrets.DefaultStore()),
		simulations: storage.NewSimulationsRepository(kv),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) analyzer() *analyzer.Analyzer {
	return analyzer.New(a.cfg.AnalyzerConfig())
}

// prometheusConfig resolves the endpoint to talk to. --url replaces the
// configured one; a missing password is looked up among saved connections.
func (a *app) prometheusConfig(ctx context.Context) (promclient.Config, error) {
	p := a.cfg.Prometheus
	cfg := promclient.Config{
		URL:         p.URL,
		Username:    p.Username,
		Password:    p.Password,
		Timeout:     p.Timeout,
		StatusLimit: p.StatusLimit,
	}
	if promURL != "" {
		cfg.URL = promURL
		cfg.Username = promUser
		cfg.Password = ""
	}

	if cfg.Password == "" {
		saved, err := a.connections.Get(ctx, cfg.URL)
		if err != nil {
			return cfg, err
		}
		if saved != nil && saved.HasPassword && (cfg.Username == "" || cfg.Username == saved.Username) {
			cfg.Username = saved.Username
			cfg.Password = saved.Password
		}
	}
	return cfg, nil
}

func (a *app) prometheusClient(ctx context.Context) (*promclient.Client, promclient.Config, error) {
	cfg, err := a.prometheusConfig(ctx)
	if err != nil {
		return nil, cfg, err
	}
	client, err := promclient.NewClient(cfg)
	if err != nil {
		return nil, cfg, err
	}
	return client, cfg, nil
}

// rememberConnection moves the endpoint to the top of the recent list. The
// stored password, if any, is kept.
func (a *app) rememberConnection(ctx context.Context, cfg promclient.Config) {
	conn := models.Connection{BaseURL: cfg.URL, Username: cfg.Username}
	if _, err := a.connections.Add(ctx, conn); err != nil {
		slog.Warn("failed to record connection", "url", cfg.URL, "error", err)
	}
}

// sizeCalculator prefers the server's global scrape interval over the
// configured estimate.
func (a *app) sizeCalculator(ctx context.Context, client *promclient.Client) *analyzer.SizeCalculator {
	est := a.cfg.Estimate
	if d, ok := client.ScrapeInterval(ctx); ok {
		est.ScrapeInterval = d
	}
	return analyzer.NewSizeCalculator(est)
}
