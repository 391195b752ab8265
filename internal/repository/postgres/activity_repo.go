package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/octoberhq/concierge/internal/model"
)

// ActivityRepo implements ActivityLogRepository using PostgreSQL. The table
// is append-only for the application role; only the retention path deletes,
// and only under the maintenance scope.
type ActivityRepo struct{ db *DB }

// NewActivityRepo constructs an activity log repository.
func NewActivityRepo(db *DB) *ActivityRepo { return &ActivityRepo{db: db} }

// Append writes one audit record in the active tenant scope.
func (r *ActivityRepo) Append(ctx context.Context, e *model.ActivityEntry) error {
	return r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `
INSERT INTO activity_log (tenant_id, actor, action, detail)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
		e.TenantID = tenantID
		return tx.QueryRow(ctx, q, tenantID, e.Actor, e.Action, e.Detail).Scan(&e.ID, &e.CreatedAt)
	})
}

// ListRecent returns up to limit newest entries in the active tenant scope.
func (r *ActivityRepo) ListRecent(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	var out []model.ActivityEntry
	err := r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `
SELECT id, tenant_id, actor, action, detail, created_at
FROM activity_log WHERE tenant_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2`
		rows, err := tx.Query(ctx, q, tenantID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e model.ActivityEntry
			if err := rows.Scan(&e.ID, &e.TenantID, &e.Actor, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOlderThan removes entries created strictly before cutoff across all
// tenants. Retention is a global policy, so this runs in maintenance scope
// with no tenant filter; the RLS delete policy admits only the maintenance
// session. Idempotent: a second run over the same cutoff deletes nothing.
func (r *ActivityRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.InMaintenanceScope(ctx, func(tx pgx.Tx) error {
		const q = `DELETE FROM activity_log WHERE created_at < $1`
		tag, err := tx.Exec(ctx, q, cutoff)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
