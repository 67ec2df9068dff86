package storage

import (
	"context"
	"time"

	"github.com/illenko/blacklight/internal/analyzer"
)

// FindingsRepository remembers when each finding ID was first and last
// reported, so a finding keeps its history across recomputations.
type FindingsRepository struct {
	db *DB
}

func NewFindingsRepository(db *DB) *FindingsRepository {
	return &FindingsRepository{db: db}
}

type FindingSeen struct {
	ID          string    `json:"id"`
	Severity    string    `json:"severity"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

func (r *FindingsRepository) Touch(ctx context.Context, at time.Time, findings []analyzer.Finding) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (id, category, severity, title, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			severity = excluded.severity,
			title = excluded.title,
			last_seen_at = excluded.last_seen_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	at = at.UTC()
	for _, f := range findings {
		if _, err := stmt.ExecContext(ctx, f.ID, string(f.Category), string(f.Severity), f.Title, at, at); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Seen returns the history of every finding ever recorded, keyed by ID.
func (r *FindingsRepository) Seen(ctx context.Context) (map[string]FindingSeen, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT id, severity, first_seen_at, last_seen_at FROM findings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]FindingSeen)
	for rows.Next() {
		var f FindingSeen
		if err := rows.Scan(&f.ID, &f.Severity, &f.FirstSeenAt, &f.LastSeenAt); err != nil {
			return nil, err
		}
		out[f.ID] = f
	}
	return out, rows.Err()
}
