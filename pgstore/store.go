package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stampauth/stampauth"
)

// Schema is the table definition the store expects. Apply it with your
// migration tool of choice; the store never creates it on its own.
const Schema = `
CREATE TABLE IF NOT EXISTS stampauth_users (
    id                TEXT PRIMARY KEY,
    email             TEXT NOT NULL UNIQUE,
    password_hash     TEXT NOT NULL,
    email_confirmed   BOOLEAN NOT NULL DEFAULT FALSE,
    two_factor_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    authenticator_key TEXT NOT NULL DEFAULT '',
    security_stamp    TEXT NOT NULL,
    recovery_codes    TEXT[] NOT NULL DEFAULT '{}',
    created_at        TIMESTAMPTZ NOT NULL,
    version           BIGINT NOT NULL DEFAULT 1
);
`

const uniqueViolation = "23505"

// Store defines a public type used by stampauth APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	pool *pgxpool.Pool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `id, email, password_hash, email_confirmed, two_factor_enabled,
	authenticator_key, security_stamp, recovery_codes, created_at, version`

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FindByID(ctx context.Context, id string) (*stampauth.UserAccount, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM stampauth_users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FindByEmail(ctx context.Context, email string) (*stampauth.UserAccount, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM stampauth_users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

// Add describes the add operation and its observable behavior.
//
// Add may return an error when input validation, dependency calls, or security checks fail.
// Add does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Add(ctx context.Context, user *stampauth.UserAccount) (*stampauth.UserAccount, error) {
	record := user.Clone()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.Version = 1

	_, err := s.pool.Exec(ctx,
		`INSERT INTO stampauth_users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.Email, record.PasswordHash, record.EmailConfirmed,
		record.TwoFactorEnabled, record.AuthenticatorKey, record.SecurityStamp,
		record.RecoveryCodes, record.CreatedAt, record.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, stampauth.ErrAccountExists
		}
		return nil, fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, err)
	}

	return record, nil
}

// Update writes the record back only when the stored version still matches
// the caller's. Zero rows affected means either a concurrent writer won or
// the row is gone; a follow-up existence probe tells the two apart.
//
// Update may return an error when input validation, dependency calls, or security checks fail.
// Update does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Update(ctx context.Context, user *stampauth.UserAccount) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE stampauth_users
		 SET password_hash = $1, email_confirmed = $2, two_factor_enabled = $3,
		     authenticator_key = $4, security_stamp = $5, recovery_codes = $6,
		     version = version + 1
		 WHERE id = $7 AND version = $8`,
		user.PasswordHash, user.EmailConfirmed, user.TwoFactorEnabled,
		user.AuthenticatorKey, user.SecurityStamp, user.RecoveryCodes,
		user.ID, user.Version)
	if err != nil {
		return fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		probeErr := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM stampauth_users WHERE id = $1)`, user.ID).Scan(&exists)
		if probeErr != nil {
			return fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, probeErr)
		}
		if !exists {
			return stampauth.ErrUserNotFound
		}
		return stampauth.ErrConcurrencyConflict
	}

	user.Version++
	return nil
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM stampauth_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return stampauth.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*stampauth.UserAccount, error) {
	var user stampauth.UserAccount
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.EmailConfirmed,
		&user.TwoFactorEnabled, &user.AuthenticatorKey, &user.SecurityStamp,
		&user.RecoveryCodes, &user.CreatedAt, &user.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, stampauth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stampauth.ErrStoreUnavailable, err)
	}
	return &user, nil
}
