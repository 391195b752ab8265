package service

import (
	"context"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octoberhq/concierge/internal/errs"
	"github.com/octoberhq/concierge/internal/model"
	"github.com/octoberhq/concierge/internal/repository"
	"github.com/octoberhq/concierge/internal/vault"
)

type fakeAccounts struct {
	byID map[uuid.UUID]*model.AuthAccount

	upsertErr error
	getErr    error
}

var _ repository.AccountRepository = (*fakeAccounts)(nil)

func (f *fakeAccounts) Upsert(_ context.Context, a *model.AuthAccount) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.byID == nil {
		f.byID = map[uuid.UUID]*model.AuthAccount{}
	}
	cpy := *a
	f.byID[a.ID] = &cpy
	return nil
}
func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*model.AuthAccount, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}
func (f *fakeAccounts) GetByProvider(_ context.Context, p model.Provider, email string) (*model.AuthAccount, error) {
	for _, a := range f.byID {
		if a.Provider == p && a.Email == email {
			c := *a
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeAccounts) UpdateTokens(_ context.Context, id uuid.UUID, refreshEnc, accessEnc, keyID string) error {
	a, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	a.RefreshTokenEnc = refreshEnc
	a.AccessTokenEnc = accessEnc
	a.KeyID = keyID
	return nil
}
func (f *fakeAccounts) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeActivity struct {
	entries   []model.ActivityEntry
	appendErr error
}

var _ repository.ActivityLogRepository = (*fakeActivity)(nil)

func (f *fakeActivity) Append(_ context.Context, e *model.ActivityEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *e)
	return nil
}
func (f *fakeActivity) ListRecent(_ context.Context, limit int) ([]model.ActivityEntry, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]model.ActivityEntry, limit)
	copy(out, f.entries[len(f.entries)-limit:])
	return out, nil
}
func (f *fakeActivity) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []model.ActivityEntry
	var deleted int64
	for _, e := range f.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return deleted, nil
}

func testCipher(t *testing.T) *vault.Cipher {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	c, err := vault.New("2025-01", key, nil, vault.AlgAESGCM)
	require.NoError(t, err)
	return c
}

func newAccountService(t *testing.T) (*AccountServiceImpl, *fakeAccounts, *fakeActivity) {
	t.Helper()
	accounts := &fakeAccounts{}
	activity := &fakeActivity{}
	return NewAccountService(accounts, activity, testCipher(t)), accounts, activity
}

func TestAccountService_Link_SealsBeforeStorage(t *testing.T) {
	svc, accounts, activity := newAccountService(t)
	ctx := context.Background()

	a, err := svc.Link(ctx, model.ProviderGoogle, "ops@acme.test", "refresh-plain", "access-plain")
	require.NoError(t, err)
	require.Equal(t, "2025-01", a.KeyID)

	// the stored row holds envelopes, not plaintext
	stored := accounts.byID[a.ID]
	require.NotNil(t, stored)
	assert.NotContains(t, stored.RefreshTokenEnc, "refresh-plain")
	assert.NotContains(t, stored.AccessTokenEnc, "access-plain")
	assert.NotEqual(t, stored.RefreshTokenEnc, stored.AccessTokenEnc)

	// a link is audited
	require.Len(t, activity.entries, 1)
	assert.Equal(t, "account.link", activity.entries[0].Action)
	assert.NotContains(t, string(activity.entries[0].Detail), "refresh-plain")
}

func TestAccountService_Link_Validation(t *testing.T) {
	svc, _, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.Link(ctx, "", "ops@acme.test", "r", "a")
	require.Error(t, err)
	_, err = svc.Link(ctx, model.ProviderGoogle, "", "r", "a")
	require.Error(t, err)
	_, err = svc.Link(ctx, model.ProviderGoogle, "ops@acme.test", "", "a")
	require.Error(t, err)
}

func TestAccountService_Credentials_RoundTrip(t *testing.T) {
	svc, _, _ := newAccountService(t)
	ctx := context.Background()

	a, err := svc.Link(ctx, model.ProviderGoogle, "ops@acme.test", "refresh-plain", "access-plain")
	require.NoError(t, err)

	creds, err := svc.Credentials(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "refresh-plain", creds.RefreshToken)
	assert.Equal(t, "access-plain", creds.AccessToken)
}

func TestAccountService_Credentials_NotFound(t *testing.T) {
	svc, _, _ := newAccountService(t)

	_, err := svc.Credentials(context.Background(), uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountService_Credentials_CorruptEnvelope(t *testing.T) {
	svc, accounts, _ := newAccountService(t)
	ctx := context.Background()

	a, err := svc.Link(ctx, model.ProviderGoogle, "ops@acme.test", "refresh-plain", "access-plain")
	require.NoError(t, err)

	accounts.byID[a.ID].RefreshTokenEnc = strings.Repeat("A", 64)
	_, err = svc.Credentials(ctx, a.ID)
	require.Error(t, err)
}

func TestAccountService_Rotate(t *testing.T) {
	svc, accounts, activity := newAccountService(t)
	ctx := context.Background()

	a, err := svc.Link(ctx, model.ProviderGoogle, "ops@acme.test", "old-refresh", "old-access")
	require.NoError(t, err)
	before := accounts.byID[a.ID].RefreshTokenEnc

	require.NoError(t, svc.Rotate(ctx, a.ID, "new-refresh", "new-access"))
	assert.NotEqual(t, before, accounts.byID[a.ID].RefreshTokenEnc)

	creds, err := svc.Credentials(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", creds.RefreshToken)

	require.Len(t, activity.entries, 2)
	assert.Equal(t, "account.rotate", activity.entries[1].Action)
}

func TestAccountService_Rotate_NotFound(t *testing.T) {
	svc, _, _ := newAccountService(t)

	err := svc.Rotate(context.Background(), uuid.Must(uuid.NewV4()), "r", "a")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountService_Unlink(t *testing.T) {
	svc, accounts, activity := newAccountService(t)
	ctx := context.Background()

	a, err := svc.Link(ctx, model.ProviderGoogle, "ops@acme.test", "r", "a")
	require.NoError(t, err)

	require.NoError(t, svc.Unlink(ctx, a.ID))
	require.NotContains(t, accounts.byID, a.ID)
	require.ErrorIs(t, svc.Unlink(ctx, a.ID), errs.ErrNotFound)

	assert.Equal(t, "account.unlink", activity.entries[len(activity.entries)-1].Action)
}

func TestAccountService_AuditFailureDoesNotUndo(t *testing.T) {
	svc, accounts, activity := newAccountService(t)
	activity.appendErr = context.DeadlineExceeded
	ctx := context.Background()

	a, err := svc.Link(ctx, model.ProviderGoogle, "ops@acme.test", "r", "a")
	require.NoError(t, err)
	require.Contains(t, accounts.byID, a.ID)
}
