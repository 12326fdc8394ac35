package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// PostgresStore persists identities in PostgreSQL. Per-address serialization
// comes from the unique constraint on address plus row-level locking on update.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const identityColumns = `address, role, registered, name, department, badge_number, email, registered_at, last_seen_at`

func (s *PostgresStore) FindByAddress(ctx context.Context, addr id.Address) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE address = $1`, addr.String())
	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return ident, nil
}

func (s *PostgresStore) CreateIfUnregistered(ctx context.Context, ident *Identity) error {
	// The conditional upsert only replaces provisional rows; a registered row
	// wins the conflict and no row comes back.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (address) DO UPDATE SET
			role = EXCLUDED.role,
			registered = EXCLUDED.registered,
			name = EXCLUDED.name,
			department = EXCLUDED.department,
			badge_number = EXCLUDED.badge_number,
			email = EXCLUDED.email,
			registered_at = EXCLUDED.registered_at,
			last_seen_at = EXCLUDED.last_seen_at
		WHERE identities.registered = false`,
		ident.Address.String(), ident.Role.String(), ident.Registered,
		ident.Name, ident.Department, ident.BadgeNumber, ident.Email,
		ident.RegisteredAt, ident.LastSeenAt)
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Touch(ctx context.Context, addr id.Address, at time.Time) error {
	// Unknown addresses are a no-op by contract.
	_, err := s.db.ExecContext(ctx,
		`UPDATE identities SET last_seen_at = $2 WHERE address = $1`, addr.String(), at)
	if err != nil {
		return fmt.Errorf("touch identity: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*Identity, error) {
	var (
		ident   Identity
		role    string
		address string
		email   sql.NullString
		badge   sql.NullString
	)
	if err := row.Scan(&address, &role, &ident.Registered, &ident.Name,
		&ident.Department, &badge, &email, &ident.RegisteredAt, &ident.LastSeenAt); err != nil {
		return nil, err
	}
	ident.Address = id.Address(address)
	ident.Role = Role(role)
	ident.BadgeNumber = badge.String
	ident.Email = email.String
	return &ident, nil
}
