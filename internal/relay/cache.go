package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/ironhabit/internal/db"
)

// Response is a cached or fetched asset.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Cache stores asset responses by generation in the cache_entries table.
type Cache struct {
	db *db.DB
}

// NewCache wraps database.
func NewCache(database *db.DB) *Cache {
	return &Cache{db: database}
}

// Put stores resp under generation/path, replacing an earlier entry.
func (c *Cache) Put(ctx context.Context, generation, path string, resp Response) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (generation, path, status, content_type, body, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(generation, path) DO UPDATE SET
			status = excluded.status,
			content_type = excluded.content_type,
			body = excluded.body,
			cached_at = excluded.cached_at
	`, generation, path, resp.Status, resp.ContentType, resp.Body, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("cache %s%s: %w", generation, path, err)
	}
	return nil
}

// Match looks path up in every generation, preferring preferred.
func (c *Cache) Match(ctx context.Context, preferred, path string) (Response, bool, error) {
	var resp Response
	err := c.db.QueryRowContext(ctx, `
		SELECT status, content_type, body FROM cache_entries
		WHERE path = ?
		ORDER BY CASE WHEN generation = ? THEN 0 ELSE 1 END, cached_at DESC
		LIMIT 1
	`, path, preferred).Scan(&resp.Status, &resp.ContentType, &resp.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, fmt.Errorf("match %s: %w", path, err)
	}
	return resp, true, nil
}

// Generations lists the cache generations present.
func (c *Cache) Generations(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT generation FROM cache_entries ORDER BY generation`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gens []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

// DeleteExcept removes every generation other than keep and returns how
// many entries went.
func (c *Cache) DeleteExcept(ctx context.Context, keep string) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE generation != ?`, keep)
	if err != nil {
		return 0, fmt.Errorf("evict old generations: %w", err)
	}
	return res.RowsAffected()
}
