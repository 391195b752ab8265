package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/octoberhq/concierge/internal/errs"
	"github.com/octoberhq/concierge/internal/model"
)

// TenantRepo implements TenantRepository using PostgreSQL.
type TenantRepo struct{ db *DB }

// NewTenantRepo constructs a tenant repository.
func NewTenantRepo(db *DB) *TenantRepo { return &TenantRepo{db: db} }

// Create inserts a new tenant. Runs in maintenance scope: the tenant does
// not exist yet, so no tenant binding is possible.
func (r *TenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	return r.db.InMaintenanceScope(ctx, func(tx pgx.Tx) error {
		const q = `
INSERT INTO tenants (id, name)
VALUES ($1, $2)
RETURNING created_at`
		err := tx.QueryRow(ctx, q, t.ID, t.Name).Scan(&t.CreatedAt)
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	})
}

// GetByID loads the tenant bound to the active scope. Asking for a foreign
// tenant id yields zero rows and maps to ErrNotFound.
func (r *TenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `
SELECT id, name, created_at
FROM tenants WHERE id=$1 AND id=$2`
		if err := tx.QueryRow(ctx, q, id, tenantID).Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}
