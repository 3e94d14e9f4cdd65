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

var _ repository.BlogRepository = (*DB)(nil)

const blogColumns = `id, user_id, title, content, summary, created_at, updated_at`

func scanBlog(s scanner) (*model.Blog, error) {
	var b model.Blog
	err := s.Scan(&b.ID, &b.UserID, &b.Title, &b.Content, &b.Summary, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) CreateBlog(ctx context.Context, blog *model.Blog) error {
	blog.ID = uuid.NewString()
	now := db.now()
	blog.CreatedAt = now
	blog.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO blogs (`+blogColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		blog.ID, blog.UserID, blog.Title, blog.Content, blog.Summary, blog.CreatedAt, blog.UpdatedAt,
	)
	if err != nil {
		return translateWriteError("blog", "creating blog", err)
	}
	return nil
}

func (db *DB) GetBlogByID(ctx context.Context, id string) (*model.Blog, error) {
	b, err := scanBlog(db.conn.QueryRowContext(ctx,
		`SELECT `+blogColumns+` FROM blogs WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("blog", id)
		}
		return nil, fmt.Errorf("sqlite: getting blog %s: %w", id, err)
	}
	return b, nil
}

func (db *DB) ListBlogs(ctx context.Context, opts repository.ListOptions) ([]model.Blog, error) {
	limit := clampLimit(opts.Limit, 100, 100)
	offset := max(opts.Offset, 0)

	query := `SELECT ` + blogColumns + ` FROM blogs`
	args := []any{}
	if opts.UserID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, opts.UserID)
	}
	query += ` ORDER BY created_at, rowid LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing blogs: %w", err)
	}
	defer rows.Close()

	blogs, err := collectBlogs(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing blogs: %w", err)
	}
	return blogs, nil
}

func collectBlogs(rows *sql.Rows, capHint int) ([]model.Blog, error) {
	blogs := make([]model.Blog, 0, capHint)
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning blog row: %w", err)
		}
		blogs = append(blogs, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blogs: %w", err)
	}
	return blogs, nil
}

func (db *DB) UpdateBlog(ctx context.Context, blog *model.Blog) error {
	blog.UpdatedAt = db.now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE blogs SET title = ?, content = ?, summary = ?, updated_at = ? WHERE id = ?`,
		blog.Title, blog.Content, blog.Summary, blog.UpdatedAt, blog.ID,
	)
	if err != nil {
		return translateWriteError("blog", "updating blog "+blog.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("blog", blog.ID)
	}
	return nil
}

func (db *DB) DeleteBlog(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting blog %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("blog", id)
	}
	return nil
}
