package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/nkoleva/sflogin/internal/apperror"
	"github.com/nkoleva/sflogin/internal/model"
	"github.com/nkoleva/sflogin/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user row, assigning an xid and timestamps in place.
// A duplicate email surfaces as apperror.ErrConflict — the caller decides
// whether that is a race with a concurrent first login or a genuine bug.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetByEmail retrieves a user by exact email match. Case normalization is
// deliberately left to the caller's data — the login flow matches whatever
// Salesforce reported, verbatim.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, where, arg string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, active, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", arg)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", arg, err)
	}

	return &u, nil
}

// SetProviderLink inserts or wholesale-replaces the link row for
// (link.UserID, link.Provider). Every successful login lands here, so the
// upsert keeps the invariant of at most one link per (user, provider) without
// a prior SELECT.
func (db *DB) SetProviderLink(ctx context.Context, link *model.ProviderLink) error {
	link.UpdatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO provider_links (user_id, provider, provider_user_id, access_token, refresh_token, issued_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, provider) DO UPDATE SET
		 	provider_user_id = excluded.provider_user_id,
		 	access_token     = excluded.access_token,
		 	refresh_token    = excluded.refresh_token,
		 	issued_at        = excluded.issued_at,
		 	updated_at       = excluded.updated_at`,
		link.UserID,
		link.Provider,
		link.ProviderUserID,
		link.AccessToken,
		link.RefreshToken,
		link.IssuedAt,
		link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting provider link (user=%s provider=%s): %w", link.UserID, link.Provider, err)
	}

	return nil
}

// GetProviderLink retrieves the link row for (userID, provider).
// Returns apperror.ErrNotFound if the user has never logged in via provider.
func (db *DB) GetProviderLink(ctx context.Context, userID, provider string) (*model.ProviderLink, error) {
	var l model.ProviderLink

	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, provider, provider_user_id, access_token, refresh_token, issued_at, updated_at
		 FROM provider_links WHERE user_id = ? AND provider = ?`,
		userID, provider,
	).Scan(
		&l.UserID,
		&l.Provider,
		&l.ProviderUserID,
		&l.AccessToken,
		&l.RefreshToken,
		&l.IssuedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("provider link", userID)
		}
		return nil, fmt.Errorf("sqlite: getting provider link for user %s: %w", userID, err)
	}

	return &l, nil
}

// isUniqueViolation sniffs the driver error for a UNIQUE constraint failure.
// modernc.org/sqlite exposes no typed error for this, so string matching is
// the available option.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
