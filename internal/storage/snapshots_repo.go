package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/illenko/blacklight/internal/analyzer"
	"github.com/illenko/blacklight/pkg/models"
)

type SnapshotsRepository struct {
	db *DB
}

func NewSnapshotsRepository(db *DB) *SnapshotsRepository {
	return &SnapshotsRepository{db: db}
}

// Save records a snapshot summary together with the full snapshot so the
// latest one can be restored on restart.
func (r *SnapshotsRepository) Save(ctx context.Context, s *models.SnapshotSummary, snap *analyzer.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO snapshots (collected_at, total_series, label_pairs, chunk_count, metric_count, label_count, targets_up, targets_total, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collected_at) DO UPDATE SET
			total_series = excluded.total_series,
			label_pairs = excluded.label_pairs,
			chunk_count = excluded.chunk_count,
			metric_count = excluded.metric_count,
			label_count = excluded.label_count,
			targets_up = excluded.targets_up,
			targets_total = excluded.targets_total,
			payload = excluded.payload
	`

	result, err := r.db.conn.ExecContext(ctx, query,
		s.CollectedAt.UTC(), s.TotalSeries, s.LabelPairs, s.ChunkCount,
		s.MetricCount, s.LabelCount, s.TargetsUp, s.TargetsTotal, string(payload),
	)
	if err != nil {
		return err
	}

	if id, err := result.LastInsertId(); err == nil {
		s.ID = id
	}
	return nil
}

const summaryColumns = `id, collected_at, total_series, label_pairs, chunk_count, metric_count, label_count, targets_up, targets_total`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*models.SnapshotSummary, error) {
	var s models.SnapshotSummary
	err := row.Scan(
		&s.ID, &s.CollectedAt, &s.TotalSeries, &s.LabelPairs, &s.ChunkCount,
		&s.MetricCount, &s.LabelCount, &s.TargetsUp, &s.TargetsTotal,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SnapshotsRepository) GetLatest(ctx context.Context) (*models.SnapshotSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM snapshots ORDER BY collected_at DESC LIMIT 1`

	s, err := scanSummary(r.db.conn.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// LoadLatest restores the most recent full snapshot, or nil if none was
// saved.
func (r *SnapshotsRepository) LoadLatest(ctx context.Context) (*analyzer.Snapshot, error) {
	var payload sql.NullString
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT payload FROM snapshots ORDER BY collected_at DESC LIMIT 1`,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !payload.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snap, err := analyzer.DecodeSnapshot([]byte(payload.String))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (r *SnapshotsRepository) List(ctx context.Context, limit int) ([]*models.SnapshotSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM snapshots ORDER BY collected_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SnapshotSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SnapshotsRepository) GetTrends(ctx context.Context, since time.Time) ([]models.TrendDataPoint, error) {
	query := `
		SELECT collected_at, total_series, metric_count, chunk_count
		FROM snapshots
		WHERE collected_at >= ?
		ORDER BY collected_at ASC
	`

	rows, err := r.db.conn.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.TrendDataPoint
	for rows.Next() {
		var p models.TrendDataPoint
		if err := rows.Scan(&p.Date, &p.TotalSeries, &p.MetricCount, &p.ChunkCount); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *SnapshotsRepository) GetPrevious(ctx context.Context, before time.Time) (*models.SnapshotSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM snapshots WHERE collected_at < ? ORDER BY collected_at DESC LIMIT 1`

	s, err := scanSummary(r.db.conn.QueryRowContext(ctx, query, before.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// CalculateTrend is the percentage change in total series against the
// previous snapshot, or 0 without one.
func (r *SnapshotsRepository) CalculateTrend(ctx context.Context, current *models.SnapshotSummary) (float64, error) {
	prev, err := r.GetPrevious(ctx, current.CollectedAt)
	if err != nil {
		return 0, err
	}
	if prev == nil || prev.TotalSeries == 0 {
		return 0, nil
	}

	return float64(current.TotalSeries-prev.TotalSeries) / float64(prev.TotalSeries) * 100, nil
}
