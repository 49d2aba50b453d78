// Package ledger keeps a journal of the images this service put on the
// image host, so objects orphaned by a failed CMS write can be found later.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Object is one image known to the image host.
type Object struct {
	Key       string     `json:"key"`
	URL       string     `json:"url"`
	Name      string     `json:"name"`
	Size      int64      `json:"size"`
	Mime      string     `json:"mime"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Journal records remote objects.
type Journal interface {
	Uploaded(ctx context.Context, obj Object) error
	Deleted(ctx context.Context, key string) error
	Recent(ctx context.Context, limit int) ([]Object, error)
}

// Repository is the Postgres Journal.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Uploaded inserts obj, reviving the row if the host reused a key.
func (r *Repository) Uploaded(ctx context.Context, obj Object) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO remote_objects (key, url, name, size, mime)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key) DO UPDATE
		 SET url = EXCLUDED.url, name = EXCLUDED.name, size = EXCLUDED.size,
		     mime = EXCLUDED.mime, created_at = NOW(), deleted_at = NULL`,
		obj.Key, obj.URL, obj.Name, obj.Size, obj.Mime,
	)
	if err != nil {
		return fmt.Errorf("record uploaded object: %w", err)
	}
	return nil
}

// Deleted marks key as removed from the host.
func (r *Repository) Deleted(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE remote_objects SET deleted_at = NOW()
		 WHERE key = $1 AND deleted_at IS NULL`,
		key,
	)
	if err != nil {
		return fmt.Errorf("record deleted object: %w", err)
	}
	return nil
}

// Recent lists the newest objects first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Object, error) {
	rows, err := r.db.Query(ctx,
		`SELECT key, url, name, size, mime, created_at, deleted_at
		 FROM remote_objects
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	objs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Object, error) {
		var o Object
		err := row.Scan(&o.Key, &o.URL, &o.Name, &o.Size, &o.Mime, &o.CreatedAt, &o.DeletedAt)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan objects: %w", err)
	}
	return objs, nil
}

// Noop is the Journal used when no database is configured.
type Noop struct{}

// Uploaded discards obj.
func (Noop) Uploaded(context.Context, Object) error { return nil }

// Deleted discards key.
func (Noop) Deleted(context.Context, string) error { return nil }

// Recent always returns an empty, non-nil list.
func (Noop) Recent(context.Context, int) ([]Object, error) {
	return []Object{}, nil
}
