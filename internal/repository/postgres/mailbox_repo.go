package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/octoberhq/concierge/internal/errs"
	"github.com/octoberhq/concierge/internal/model"
)

// MailboxRepo implements MailboxRepository using PostgreSQL.
type MailboxRepo struct{ db *DB }

// NewMailboxRepo constructs a mailbox repository.
func NewMailboxRepo(db *DB) *MailboxRepo { return &MailboxRepo{db: db} }

// Upsert inserts or refreshes a mailbox keyed by (tenant, address).
func (r *MailboxRepo) Upsert(ctx context.Context, m *model.Mailbox) error {
	return r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `
INSERT INTO mailboxes (id, tenant_id, account_id, address, access_token_enc, key_id, history_id, watch_expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (tenant_id, address) DO UPDATE SET
  account_id       = EXCLUDED.account_id,
  access_token_enc = EXCLUDED.access_token_enc,
  key_id           = EXCLUDED.key_id,
  history_id       = EXCLUDED.history_id,
  watch_expires_at = EXCLUDED.watch_expires_at
RETURNING id, created_at`
		m.TenantID = tenantID
		return tx.QueryRow(ctx, q,
			m.ID, tenantID, m.AccountID, m.Address, m.AccessTokenEnc, m.KeyID, m.HistoryID, m.WatchExpiresAt,
		).Scan(&m.ID, &m.CreatedAt)
	})
}

// GetByAddress loads a mailbox within the active tenant scope.
func (r *MailboxRepo) GetByAddress(ctx context.Context, address string) (*model.Mailbox, error) {
	var m model.Mailbox
	err := r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `
SELECT id, tenant_id, account_id, address, access_token_enc, key_id, history_id, watch_expires_at, created_at
FROM mailboxes WHERE address=$1 AND tenant_id=$2`
		err := tx.QueryRow(ctx, q, address, tenantID).Scan(
			&m.ID, &m.TenantID, &m.AccountID, &m.Address,
			&m.AccessTokenEnc, &m.KeyID, &m.HistoryID, &m.WatchExpiresAt, &m.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateAccessToken overwrites the sealed access token after a refresh.
func (r *MailboxRepo) UpdateAccessToken(ctx context.Context, id uuid.UUID, accessEnc, keyID string) error {
	return r.db.InTenantScope(ctx, func(tx pgx.Tx, tenantID uuid.UUID) error {
		const q = `
UPDATE mailboxes SET access_token_enc=$2, key_id=$3 WHERE id=$1 AND tenant_id=$4`
		tag, err := tx.Exec(ctx, q, id, accessEnc, keyID, tenantID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}
