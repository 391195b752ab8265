// Package repository defines storage interfaces implemented by concrete backends.
//
// Tenant-scoped methods read the active tenant id from the context (see
// package tenant) and fail with errs.ErrNoTenant when it is absent.
// Maintenance methods cross tenant boundaries and require the privileged
// storage role.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/octoberhq/concierge/internal/model"
)

// TenantRepository manages the tenant registry. Creation runs in a
// maintenance scope since no tenant binding exists yet.
type TenantRepository interface {
	// Create inserts a new tenant (maintenance scope).
	Create(ctx context.Context, t *model.Tenant) error
	// GetByID loads the tenant visible in the active scope.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
}

// ActivityLogRepository provides append-only audit storage with a
// maintenance-only retention path.
type ActivityLogRepository interface {
	// Append writes one audit record in the active tenant scope.
	Append(ctx context.Context, e *model.ActivityEntry) error
	// ListRecent returns up to limit newest entries in the active tenant scope.
	ListRecent(ctx context.Context, limit int) ([]model.ActivityEntry, error)
	// DeleteOlderThan removes entries created strictly before cutoff across
	// all tenants (maintenance scope) and returns the number deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
