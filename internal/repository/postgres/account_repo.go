package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/octoberhq/concierge/internal/errs"
	"github.com/octoberhq/concierge/internal/model"
)

// AccountRepo implements AccountRepository using PostgreSQL. Token columns
// only ever hold sealed envelopes; the repo treats them as opaque text.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const accountCols = `id, tenant_id, provider, email, refresh_token_enc, access_token_enc, key_id, created_at, updated_at`

// Upsert inserts or refreshes an account keyed by (tenant, provider, email).
// A re-link overwrites the stored envelopes with the new ones.
func (r *AccountRepo) Upsert(ctx context.Context, a *model.AuthAccount) error {
	return r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `
INSERT INTO auth_accounts (id, tenant_id, provider, email, refresh_token_enc, access_token_enc, key_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (tenant_id, provider, email) DO UPDATE SET
  refresh_token_enc = EXCLUDED.refresh_token_enc,
  access_token_enc  = EXCLUDED.access_token_enc,
  key_id            = EXCLUDED.key_id,
  updated_at        = now()
RETURNING id, created_at, updated_at`
		a.TenantID = tenantID
		return tx.QueryRow(ctx, q,
			a.ID, tenantID, a.Provider, a.Email, a.RefreshTokenEnc, a.AccessTokenEnc, a.KeyID,
		).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	})
}

// GetByID loads an account within the active tenant scope.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.AuthAccount, error) {
	var a model.AuthAccount
	err := r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `
SELECT ` + accountCols + `
FROM auth_accounts WHERE id=$1 AND tenant_id=$2`
		return scanAccount(tx.QueryRow(ctx, q, id, tenantID), &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByProvider loads an account by provider and email within the active scope.
func (r *AccountRepo) GetByProvider(ctx context.Context, p model.Provider, email string) (*model.AuthAccount, error) {
	var a model.AuthAccount
	err := r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `
SELECT ` + accountCols + `
FROM auth_accounts WHERE provider=$1 AND email=$2 AND tenant_id=$3`
		return scanAccount(tx.QueryRow(ctx, q, p, email, tenantID), &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateTokens overwrites the sealed envelopes after a provider refresh.
func (r *AccountRepo) UpdateTokens(ctx context.Context, id uuid.UUID, refreshEnc, accessEnc, keyID string) error {
	return r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `
UPDATE auth_accounts
SET refresh_token_enc=$2, access_token_enc=$3, key_id=$4, updated_at=now()
WHERE id=$1 AND tenant_id=$5`
		tag, err := tx.Exec(ctx, q, id, refreshEnc, accessEnc, keyID, tenantID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// Delete unlinks the account. The row's envelopes go with it.
func (r *AccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `DELETE FROM auth_accounts WHERE id=$1 AND tenant_id=$2`
		tag, err := tx.Exec(ctx, q, id, tenantID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

func scanAccount(row pgx.Row, a *model.AuthAccount) error {
	err := row.Scan(&a.ID, &a.TenantID, &a.Provider, &a.Email,
		&a.RefreshTokenEnc, &a.AccessTokenEnc, &a.KeyID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}
