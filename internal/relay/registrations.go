package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/existflow/ironhabit/internal/db"
	"github.com/existflow/ironhabit/internal/model"
)

// registrations persists pending sync registrations so they survive the
// process that made them.
type registrations struct {
	db *db.DB
}

func (r *registrations) add(ctx context.Context, tag string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_registrations (tag, registered_at) VALUES (?, ?)
		ON CONFLICT(tag) DO NOTHING
	`, tag, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("register %s: %w", tag, err)
	}
	return nil
}

func (r *registrations) pending(ctx context.Context) ([]model.SyncRegistration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tag, registered_at FROM sync_registrations ORDER BY registered_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []model.SyncRegistration
	for rows.Next() {
		var reg model.SyncRegistration
		var at string
		if err := rows.Scan(&reg.Tag, &at); err != nil {
			return nil, err
		}
		reg.RegisteredAt, _ = time.Parse(time.RFC3339Nano, at)
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *registrations) clear(ctx context.Context, tag string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_registrations WHERE tag = ?`, tag)
	return err
}
