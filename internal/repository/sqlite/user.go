package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sakif/devsnap/internal/apperror"
	"github.com/sakif/devsnap/internal/model"
	"github.com/sakif/devsnap/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, email, github_id, github_username, bio, profile_image,
	theme_preference, created_at, updated_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanUser reads one row selected with userColumns.
//
// NULLABLE COLUMNS:
// Scanning into a **string (the address of a *string field) leaves the field
// nil for NULL and allocates a string otherwise. That maps SQL NULL straight
// onto JSON null without sql.NullString juggling.
func scanUser(s scanner) (*model.User, error) {
	var u model.User
	err := s.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.GitHubID,
		&u.GitHubUsername,
		&u.Bio,
		&u.ProfileImage,
		&u.ThemePreference,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user, assigning its ID and timestamps.
//
// Returns apperror.Conflict (Field "email" or "github_id") when the UNIQUE
// constraint rejects the row. The identity resolver relies on that to detect
// a concurrent first login of the same GitHub account.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = uuid.NewString()
	now := db.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ThemePreference == "" {
		user.ThemePreference = model.DefaultTheme
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.GitHubID,
		user.GitHubUsername,
		user.Bio,
		user.ProfileImage,
		user.ThemePreference,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return translateWriteError("user", "creating user", err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByGitHubID retrieves the user linked to a GitHub account.
func (db *DB) GetUserByGitHubID(ctx context.Context, githubID string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("user not found with github_id %s", githubID),
			}
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %s: %w", githubID, err)
	}
	return u, nil
}

// ListUsers returns users oldest first, paginated with LIMIT/OFFSET.
func (db *DB) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	limit := clampLimit(opts.Limit, 100, 100)
	offset := max(opts.Offset, 0)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY created_at, rowid
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// UpdateUser overwrites every mutable column of an existing user.
// id and created_at are immutable; updated_at is always set to now.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = db.now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET name = ?, email = ?, github_id = ?, github_username = ?, bio = ?,
		     profile_image = ?, theme_preference = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		user.Email,
		user.GitHubID,
		user.GitHubUsername,
		user.Bio,
		user.ProfileImage,
		user.ThemePreference,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return translateWriteError("user", "updating user "+user.ID, err)
	}

	// RowsAffected() tells us how many rows were changed by the UPDATE.
	// If 0 rows were affected, the WHERE clause didn't match anything → not found.
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// DeleteUser removes a user. Their projects and blogs go with them through
// ON DELETE CASCADE.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
