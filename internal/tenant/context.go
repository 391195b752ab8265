// Package tenant binds a tenant identity to a unit of work.
//
// The binding travels in the context and is consumed by the storage layer,
// which re-asserts it inside every transaction. A call without a binding
// fails before any SQL is issued.
package tenant

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

type ctxKey string

const tenantIDKey ctxKey = "concierge.tenantID"

// WithTenant stores the tenant id in context for subsequent storage calls.
func WithTenant(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

// FromContext fetches the tenant id from context.
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(tenantIDKey)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
