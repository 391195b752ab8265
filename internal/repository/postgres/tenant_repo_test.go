package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/octoberhq/concierge/internal/errs"
	"github.com/octoberhq/concierge/internal/model"
)

func TestTenantRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTenantRepo(db)
	ctx := context.Background()
	tn := &model.Tenant{ID: uuid.Must(uuid.NewV4()), Name: "acme"}

	// OK; creation runs in maintenance scope since the tenant has no scope yet
	expectMaintenanceScope(mock)
	mock.ExpectQuery(`INSERT INTO tenants \(id, name\) VALUES \(\$1, \$2\) RETURNING created_at`).
		WithArgs(tn.ID, tn.Name).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()
	require.NoError(t, r.Create(ctx, tn))

	// Unique violation
	expectMaintenanceScope(mock)
	mock.ExpectQuery(`INSERT INTO tenants \(id, name\) VALUES \(\$1, \$2\) RETURNING created_at`).
		WithArgs(tn.ID, tn.Name).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()
	err := r.Create(ctx, tn)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTenantRepo(db)
	ctx, id := tenantCtx(t)

	expectTenantScope(mock, id)
	mock.ExpectQuery(`SELECT id, name, created_at FROM tenants WHERE id=\$1 AND id=\$2`).
		WithArgs(id, id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "created_at"}).AddRow(id, "acme", time.Now()))
	mock.ExpectCommit()
	tn, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, tn.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepo_GetByID_ForeignTenant(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTenantRepo(db)
	ctx, id := tenantCtx(t)
	other := uuid.Must(uuid.NewV4())

	// asking for somebody else's tenant id yields no rows, never an
	// isolation-specific error
	expectTenantScope(mock, id)
	mock.ExpectQuery(`SELECT id, name, created_at FROM tenants WHERE id=\$1 AND id=\$2`).
		WithArgs(other, id).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()
	_, err := r.GetByID(ctx, other)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepo_GetByID_NoBinding(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTenantRepo(db)

	_, err := r.GetByID(context.Background(), uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNoTenant)
	require.NoError(t, mock.ExpectationsWereMet())
}
