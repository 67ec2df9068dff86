package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/illenko/blacklight/internal/secrets"
	"github.com/illenko/blacklight/pkg/models"
)

const (
	connectionsKey = "connections"
	maxConnections = 10
)

// ConnectionsRepository keeps recently used Prometheus endpoints, most
// recent first, one entry per base URL. Passwords go to the secret store and
// never to the database.
type ConnectionsRepository struct {
	kv      *KVStore
	secrets secrets.Store
}

func NewConnectionsRepository(kv *KVStore, store secrets.Store) *ConnectionsRepository {
	return &ConnectionsRepository{kv: kv, secrets: store}
}

func (r *ConnectionsRepository) List(ctx context.Context) ([]models.Connection, error) {
	var conns []models.Connection
	if _, err := r.kv.getJSON(ctx, connectionsKey, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// Add records a connection as the most recently used. An existing entry
// with the same base URL is replaced, and its password is kept only while
// the username stays the same. Entries beyond the limit are dropped along
// with their stored passwords.
func (r *ConnectionsRepository) Add(ctx context.Context, conn models.Connection) (*models.Connection, error) {
	conn.BaseURL = secrets.NormalizeURL(conn.BaseURL)
	if conn.BaseURL == "" {
		return nil, fmt.Errorf("connection base URL is required")
	}

	existing, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	if conn.Password != "" {
		if err := r.secrets.Set(conn.BaseURL, conn.Password); err != nil {
			return nil, fmt.Errorf("failed to store password: %w", err)
		}
		conn.HasPassword = true
	} else {
		for _, c := range existing {
			if c.BaseURL != conn.BaseURL {
				continue
			}
			if c.Username == conn.Username {
				conn.HasPassword = c.HasPassword
			} else {
				// The stored password belonged to the previous user.
				r.forgetPassword(c)
			}
		}
	}
	conn.Password = ""
	conn.LastUsedAt = time.Now().UTC()

	conns := []models.Connection{conn}
	for _, c := range existing {
		if c.BaseURL != conn.BaseURL {
			conns = append(conns, c)
		}
	}
	if len(conns) > maxConnections {
		for _, evicted := range conns[maxConnections:] {
			r.forgetPassword(evicted)
		}
		conns = conns[:maxConnections]
	}

	if err := r.kv.setJSON(ctx, connectionsKey, conns); err != nil {
		return nil, err
	}
	return &conn, nil
}

// Get returns the saved connection with its password loaded, or nil if the
// URL was never saved.
func (r *ConnectionsRepository) Get(ctx context.Context, baseURL string) (*models.Connection, error) {
	conns, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	baseURL = secrets.NormalizeURL(baseURL)
	for _, c := range conns {
		if c.BaseURL != baseURL {
			continue
		}
		if c.HasPassword {
			pw, err := r.secrets.Get(c.BaseURL)
			switch {
			case err == nil:
				c.Password = pw
			case errors.Is(err, secrets.ErrNotFound):
				c.HasPassword = false
			default:
				return nil, fmt.Errorf("failed to read password: %w", err)
			}
		}
		return &c, nil
	}
	return nil, nil
}

// Remove forgets a connection and its password. Removing an unknown URL is
// not an error.
func (r *ConnectionsRepository) Remove(ctx context.Context, baseURL string) error {
	conns, err := r.List(ctx)
	if err != nil {
		return err
	}
	baseURL = secrets.NormalizeURL(baseURL)

	kept := conns[:0]
	for _, c := range conns {
		if c.BaseURL == baseURL {
			r.forgetPassword(c)
			continue
		}
		kept = append(kept, c)
	}
	return r.kv.setJSON(ctx, connectionsKey, kept)
}

func (r *ConnectionsRepository) forgetPassword(c models.Connection) {
	if !c.HasPassword {
		return
	}
	if err := r.secrets.Delete(c.BaseURL); err != nil && !errors.Is(err, secrets.ErrNotFound) {
		slog.Warn("failed to delete stored password", "url", c.BaseURL, "error", err)
	}
}
