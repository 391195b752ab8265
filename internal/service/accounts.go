// Package service contains application services for account linking and retention.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/octoberhq/concierge/internal/model"
	"github.com/octoberhq/concierge/internal/repository"
	"github.com/octoberhq/concierge/internal/vault"
)

// Credentials holds decrypted provider tokens for in-memory use only.
// Never logged, never persisted.
type Credentials struct {
	RefreshToken string
	AccessToken  string
}

// AccountService links provider accounts, sealing tokens before they cross
// the storage boundary and opening them after.
type AccountService interface {
	// Link stores a newly authorized provider account with sealed tokens.
	Link(ctx context.Context, p model.Provider, email, refreshToken, accessToken string) (*model.AuthAccount, error)
	// Credentials loads and opens the account's tokens.
	Credentials(ctx context.Context, accountID uuid.UUID) (Credentials, error)
	// Rotate replaces stored tokens after a provider refresh.
	Rotate(ctx context.Context, accountID uuid.UUID, refreshToken, accessToken string) error
	// Unlink removes the account and its stored envelopes.
	Unlink(ctx context.Context, accountID uuid.UUID) error
}

type AccountServiceImpl struct {
	accounts repository.AccountRepository
	activity repository.ActivityLogRepository
	cipher   *vault.Cipher
}

// NewAccountService constructs AccountService with required dependencies.
func NewAccountService(accounts repository.AccountRepository, activity repository.ActivityLogRepository, cipher *vault.Cipher) *AccountServiceImpl {
	return &AccountServiceImpl{accounts: accounts, activity: activity, cipher: cipher}
}

// Link seals both tokens under the active key and upserts the account.
func (s *AccountServiceImpl) Link(ctx context.Context, p model.Provider, email, refreshToken, accessToken string) (*model.AuthAccount, error) {
	if p == "" || email == "" {
		return nil, errors.New("validation: empty provider/email")
	}
	if refreshToken == "" || accessToken == "" {
		return nil, errors.New("validation: empty tokens")
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	refreshEnc, err := s.cipher.Seal(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("seal refresh token: %w", err)
	}
	accessEnc, err := s.cipher.Seal(accessToken)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}

	a := &model.AuthAccount{
		ID:              id,
		Provider:        p,
		Email:           email,
		RefreshTokenEnc: refreshEnc,
		AccessTokenEnc:  accessEnc,
		KeyID:           s.cipher.ActiveKeyID(),
	}
	if err := s.accounts.Upsert(ctx, a); err != nil {
		return nil, err
	}
	s.audit(ctx, "account.link", a.ID)
	return a, nil
}

// Credentials opens the stored envelopes. Plaintext exists only in the
// returned value; the caller owns its lifetime.
func (s *AccountServiceImpl) Credentials(ctx context.Context, accountID uuid.UUID) (Credentials, error) {
	if accountID == uuid.Nil {
		return Credentials{}, errors.New("validation: empty accountID")
	}
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return Credentials{}, err
	}
	refresh, err := s.cipher.Open(a.RefreshTokenEnc)
	if err != nil {
		return Credentials{}, fmt.Errorf("open refresh token: %w", err)
	}
	access, err := s.cipher.Open(a.AccessTokenEnc)
	if err != nil {
		return Credentials{}, fmt.Errorf("open access token: %w", err)
	}
	return Credentials{RefreshToken: refresh, AccessToken: access}, nil
}

// Rotate overwrites the stored envelopes with freshly sealed tokens. Old
// envelopes are destroyed by the update.
func (s *AccountServiceImpl) Rotate(ctx context.Context, accountID uuid.UUID, refreshToken, accessToken string) error {
	if accountID == uuid.Nil {
		return errors.New("validation: empty accountID")
	}
	if refreshToken == "" || accessToken == "" {
		return errors.New("validation: empty tokens")
	}
	refreshEnc, err := s.cipher.Seal(refreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}
	accessEnc, err := s.cipher.Seal(accessToken)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	if err := s.accounts.UpdateTokens(ctx, accountID, refreshEnc, accessEnc, s.cipher.ActiveKeyID()); err != nil {
		return err
	}
	s.audit(ctx, "account.rotate", accountID)
	return nil
}

// Unlink deletes the account row and with it the sealed envelopes.
func (s *AccountServiceImpl) Unlink(ctx context.Context, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return errors.New("validation: empty accountID")
	}
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		return err
	}
	s.audit(ctx, "account.unlink", accountID)
	return nil
}

// audit appends a best-effort activity record. Audit failure must not undo
// a completed credential operation.
func (s *AccountServiceImpl) audit(ctx context.Context, action string, accountID uuid.UUID) {
	_ = s.activity.Append(ctx, &model.ActivityEntry{
		Actor:  "system",
		Action: action,
		Detail: []byte(fmt.Sprintf(`{"account_id":%q}`, accountID)),
	})
}
