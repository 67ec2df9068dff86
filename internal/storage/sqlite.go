package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	conn *sql.DB
}

func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		slog.Debug("running migration", "file", entry.Name())

		if _, err := db.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

type DBStats struct {
	SnapshotsCount    int64 `json:"snapshots_count"`
	MetricSeriesCount int64 `json:"metric_series_count"`
	FindingsCount     int64 `json:"findings_count"`
	KVCount           int64 `json:"kv_count"`
	SizeBytes         int64 `json:"size_bytes"`
}

func (db *DB) Stats(ctx context.Context) (*DBStats, error) {
	var stats DBStats

	counts := []struct {
		table string
		dst   *int64
	}{
		{"snapshots", &stats.SnapshotsCount},
		{"metric_series", &stats.MetricSeriesCount},
		{"findings", &stats.FindingsCount},
		{"kv", &stats.KVCount},
	}
	for _, c := range counts {
		row := db.conn.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table))
		if err := row.Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	row := db.conn.QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	if err := row.Scan(&stats.SizeBytes); err != nil {
		stats.SizeBytes = 0
	}

	return &stats, nil
}

// Cleanup removes history older than retention. Saved connections and
// simulations in the key-value table are never expired.
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	var totalDeleted int64

	deletes := []struct {
		table  string
		column string
	}{
		{"snapshots", "collected_at"},
		{"metric_series", "collected_at"},
		{"findings", "last_seen_at"},
	}
	for _, d := range deletes {
		result, err := db.conn.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s < ?", d.table, d.column),
			cutoff,
		)
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to cleanup %s: %w", d.table, err)
		}
		deleted, _ := result.RowsAffected()
		totalDeleted += deleted
	}

	if _, err := db.conn.ExecContext(ctx, "VACUUM"); err != nil {
		slog.Warn("failed to vacuum database", "error", err)
	}

	return totalDeleted, nil
}
