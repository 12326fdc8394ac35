package identity

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

func TestPostgresStore_FindByAddress(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	addr := id.Address("0x1111111111111111111111111111111111111111")
	now := time.Now()

	t.Run("scans a full row", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"address", "role", "registered", "name", "department",
			"badge_number", "email", "registered_at", "last_seen_at",
		}).AddRow(addr.String(), "officer", true, "Officer 0x1111", "Police Department",
			"PD0042", "officer@example.gov", now, now)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT address, role, registered`)).
			WithArgs(addr.String()).
			WillReturnRows(rows)

		ident, err := store.FindByAddress(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, RoleOfficer, ident.Role)
		assert.Equal(t, "PD0042", ident.BadgeNumber)
		assert.True(t, ident.Registered)
	})

	t.Run("maps no rows to ErrNotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT address, role, registered`)).
			WithArgs(addr.String()).
			WillReturnRows(sqlmock.NewRows([]string{"address"}))

		_, err := store.FindByAddress(context.Background(), addr)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateIfUnregistered(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	now := time.Now()
	ident := &Identity{
		Address:      id.Address("0x2222222222222222222222222222222222222222"),
		Role:         RoleAdmin,
		Registered:   true,
		Name:         "Admin 0x2222",
		Department:   "Central Bureau",
		BadgeNumber:  "CBI0007",
		RegisteredAt: now,
		LastSeenAt:   now,
	}

	t.Run("inserts when address is free", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO identities`)).
			WithArgs(ident.Address.String(), "admin", true, ident.Name, ident.Department,
				ident.BadgeNumber, "", now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.CreateIfUnregistered(context.Background(), ident))
	})

	t.Run("registered row wins the conflict", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO identities`)).
			WithArgs(ident.Address.String(), "admin", true, ident.Name, ident.Department,
				ident.BadgeNumber, "", now, now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.CreateIfUnregistered(context.Background(), ident)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Touch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db)

	addr := id.Address("0x3333333333333333333333333333333333333333")
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE identities SET last_seen_at`)).
		WithArgs(addr.String(), at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Touch(context.Background(), addr, at))
	require.NoError(t, mock.ExpectationsWereMet())
}
