package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/illenko/blacklight/internal/analyzer"
	"github.com/illenko/blacklight/pkg/models"
)

// MetricsRepository keeps per-metric series counts across snapshots.
type MetricsRepository struct {
	db *DB
}

func NewMetricsRepository(db *DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

func (r *MetricsRepository) SaveBatch(ctx context.Context, collectedAt time.Time, metrics []analyzer.NameCount) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_series (collected_at, metric_name, series_count)
		VALUES (?, ?, ?)
		ON CONFLICT(metric_name, collected_at) DO UPDATE SET
			series_count = excluded.series_count
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	at := collectedAt.UTC()
	for _, m := range metrics {
		if _, err := stmt.ExecContext(ctx, at, m.Name, m.Value); err != nil {
			return fmt.Errorf("failed to save series count for %s: %w", m.Name, err)
		}
	}

	return tx.Commit()
}

// History returns one metric's series counts since a point in time, oldest
// first.
func (r *MetricsRepository) History(ctx context.Context, metric string, since time.Time) ([]models.MetricPoint, error) {
	query := `
		SELECT collected_at, metric_name, series_count
		FROM metric_series
		WHERE metric_name = ? AND collected_at >= ?
		ORDER BY collected_at ASC
	`

	rows, err := r.db.conn.QueryContext(ctx, query, metric, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.MetricPoint
	for rows.Next() {
		var p models.MetricPoint
		if err := rows.Scan(&p.CollectedAt, &p.MetricName, &p.SeriesCount); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
