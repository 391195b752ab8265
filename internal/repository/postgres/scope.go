package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/octoberhq/concierge/internal/errs"
	"github.com/octoberhq/concierge/internal/tenant"
)

// Scope settings consumed by row-level security policies. set_config with
// is_local=true is transaction-scoped: the binding dies with the transaction,
// so a pooled connection can never carry one request's tenant into another.
const (
	setTenantSQL      = `SELECT set_config('app.tenant_id', $1, true)`
	setMaintenanceSQL = `SELECT set_config('app.maintenance', 'on', true)`
)

// InTenantScope runs fn inside a transaction bound to the tenant id carried
// by ctx. The binding is asserted before any other statement; a missing
// binding fails before SQL is issued. Application queries inside fn still
// filter by tenantID explicitly — the session setting is the second,
// independent enforcement layer.
func (db *DB) InTenantScope(ctx context.Context, fn func(tx pgx.Tx, tenantID uuid.UUID) error) (err error) {
	tenantID, ok := tenant.FromContext(ctx)
	if !ok {
		return errs.ErrNoTenant
	}

	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	if _, err = tx.Exec(ctx, setTenantSQL, tenantID.String()); err != nil {
		return err
	}
	return fn(tx, tenantID)
}

// InMaintenanceScope runs fn inside a transaction flagged for cross-tenant
// maintenance. The flag only has effect when the connection's role is
// granted the maintenance policies; the per-tenant application role gains
// nothing from setting it.
func (db *DB) InMaintenanceScope(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	if _, err = tx.Exec(ctx, setMaintenanceSQL); err != nil {
		return err
	}
	return fn(tx)
}
