package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/devsnap/internal/apperror"
	"github.com/sakif/devsnap/internal/model"
	"github.com/sakif/devsnap/internal/repository"
)

var _ repository.ProfileRepository = (*DB)(nil)

// LoadProfile loads a user with all of their projects and blogs.
//
// ONE CONSISTENT READ:
// The three SELECTs run inside a single transaction, so a project
// created or a user deleted halfway through cannot produce a profile that
// never existed. Each relation costs exactly one query, however many rows it
// has (no per-row round trips).
//
// Collections are unbounded: a profile carries everything the user owns.
func (db *DB) LoadProfile(ctx context.Context, userID string) (*model.Profile, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning profile read: %w", err)
	}
	// Rollback after a successful Commit is a no-op returning sql.ErrTxDone.
	defer func() { _ = tx.Rollback() }()

	user, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", userID)
		}
		return nil, fmt.Errorf("sqlite: loading profile user %s: %w", userID, err)
	}

	projects, err := loadProjectsTx(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading profile projects %s: %w", userID, err)
	}

	blogs, err := loadBlogsTx(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading profile blogs %s: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing profile read: %w", err)
	}

	return &model.Profile{
		User:     *user,
		Projects: projects,
		Blogs:    blogs,
	}, nil
}

func loadProjectsTx(ctx context.Context, tx *sql.Tx, userID string) ([]model.Project, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = ? ORDER BY created_at, rowid`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProjects(rows, 0)
}

func loadBlogsTx(ctx context.Context, tx *sql.Tx, userID string) ([]model.Blog, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+blogColumns+` FROM blogs WHERE user_id = ? ORDER BY created_at, rowid`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBlogs(rows, 0)
}
