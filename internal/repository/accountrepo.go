package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/octoberhq/concierge/internal/model"
)

// AccountRepository stores linked provider accounts. Token fields are sealed
// envelopes; plaintext never crosses this interface.
type AccountRepository interface {
	// Upsert inserts or refreshes an account keyed by (tenant, provider, email).
	Upsert(ctx context.Context, a *model.AuthAccount) error
	// GetByID loads an account visible in the active tenant scope.
	GetByID(ctx context.Context, id uuid.UUID) (*model.AuthAccount, error)
	// GetByProvider loads an account by provider and email.
	GetByProvider(ctx context.Context, p model.Provider, email string) (*model.AuthAccount, error)
	// UpdateTokens overwrites the sealed token envelopes and key id.
	UpdateTokens(ctx context.Context, id uuid.UUID, refreshEnc, accessEnc, keyID string) error
	// Delete unlinks the account, destroying its stored envelopes.
	Delete(ctx context.Context, id uuid.UUID) error
}

// MailboxRepository stores watched mailboxes and their sealed access tokens.
type MailboxRepository interface {
	// Upsert inserts or refreshes a mailbox keyed by (tenant, address).
	Upsert(ctx context.Context, m *model.Mailbox) error
	// GetByAddress loads a mailbox visible in the active tenant scope.
	GetByAddress(ctx context.Context, address string) (*model.Mailbox, error)
	// UpdateAccessToken overwrites the sealed access token and key id.
	UpdateAccessToken(ctx context.Context, id uuid.UUID, accessEnc, keyID string) error
}
