package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists user identities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema: users(id TEXT PK, email TEXT UNIQUE, display_name TEXT,
// password_hash BYTEA, practice TEXT, modules TEXT[], plan TEXT,
// license_active BOOLEAN, created_at TIMESTAMPTZ).

func (s *PostgresStore) Save(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, practice, modules, plan, license_active, created_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			password_hash = EXCLUDED.password_hash,
			practice = EXCLUDED.practice,
			modules = EXCLUDED.modules,
			plan = EXCLUDED.plan,
			license_active = EXCLUDED.license_active`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash,
		user.Claims.Practice, pq.Array(user.Claims.Modules), user.Claims.Plan,
		user.Claims.LicenseActive, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (User, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.findOne(ctx, `WHERE email = lower($1)`, email)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (User, error) {
	var user User
	var modules pq.StringArray
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, practice, modules, plan, license_active, created_at
		FROM users `+where, arg).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash,
		&user.Claims.Practice, &modules, &user.Claims.Plan,
		&user.Claims.LicenseActive, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	user.Claims.Modules = modules
	return user, nil
}
