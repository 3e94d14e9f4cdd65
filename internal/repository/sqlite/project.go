package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sakif/devsnap/internal/apperror"
	"github.com/sakif/devsnap/internal/model"
	"github.com/sakif/devsnap/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X, so a
// missing method is caught here rather than where *DB is first passed around.
var _ repository.ProjectRepository = (*DB)(nil)

const projectColumns = `id, user_id, title, description, tech_stack, github_link, demo_link,
	summary, created_at, updated_at`

// TECH STACK STORAGE:
// tech_stack is an ordered list of tags. SQLite has no array type, so the
// list is stored as a JSON array in a TEXT column. Order is preserved and the
// column never holds NULL ('[]' for an empty list).
func encodeTechStack(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTechStack(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func scanProject(s scanner) (*model.Project, error) {
	var (
		p         model.Project
		techStack string
	)
	err := s.Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.Description,
		&techStack,
		&p.GitHubLink,
		&p.DemoLink,
		&p.Summary,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.TechStack, err = decodeTechStack(techStack); err != nil {
		return nil, fmt.Errorf("decoding tech_stack of project %s: %w", p.ID, err)
	}
	return &p, nil
}

// CreateProject inserts a new project owned by project.UserID.
//
// The owner must exist: the foreign key rejects the row otherwise, and that
// failure comes back as a validation error rather than a 500.
func (db *DB) CreateProject(ctx context.Context, project *model.Project) error {
	techStack, err := encodeTechStack(project.TechStack)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tech_stack: %w", err)
	}

	project.ID = uuid.NewString()
	now := db.now()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.TechStack == nil {
		project.TechStack = []string{}
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.UserID,
		project.Title,
		project.Description,
		techStack,
		project.GitHubLink,
		project.DemoLink,
		project.Summary,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return translateWriteError("project", "creating project", err)
	}
	return nil
}

// GetProjectByID retrieves a single project by its ID.
func (db *DB) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	p, err := scanProject(db.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("project", id)
		}
		return nil, fmt.Errorf("sqlite: getting project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects returns projects oldest first. opts.UserID narrows the list to
// one owner.
//
// LIMIT/OFFSET pagination:
// LIMIT N returns at most N rows and OFFSET M skips the first M rows.
// It is simple but slow for deep pages, which is fine at portfolio scale.
func (db *DB) ListProjects(ctx context.Context, opts repository.ListOptions) ([]model.Project, error) {
	limit := clampLimit(opts.Limit, 100, 100)
	offset := max(opts.Offset, 0)

	query := `SELECT ` + projectColumns + ` FROM projects`
	args := []any{}
	if opts.UserID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, opts.UserID)
	}
	query += ` ORDER BY created_at, rowid LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects: %w", err)
	}
	defer rows.Close()

	projects, err := collectProjects(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects: %w", err)
	}
	return projects, nil
}

// collectProjects drains rows into a non-nil slice.
func collectProjects(rows *sql.Rows, capHint int) ([]model.Project, error) {
	projects := make([]model.Project, 0, capHint)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

// UpdateProject overwrites the mutable columns of a project.
// The owner (user_id) is not mutable.
func (db *DB) UpdateProject(ctx context.Context, project *model.Project) error {
	techStack, err := encodeTechStack(project.TechStack)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tech_stack: %w", err)
	}
	project.UpdatedAt = db.now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE projects
		 SET title = ?, description = ?, tech_stack = ?, github_link = ?,
		     demo_link = ?, summary = ?, updated_at = ?
		 WHERE id = ?`,
		project.Title,
		project.Description,
		techStack,
		project.GitHubLink,
		project.DemoLink,
		project.Summary,
		project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return translateWriteError("project", "updating project "+project.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("project", project.ID)
	}
	return nil
}

// DeleteProject removes a project by its ID.
func (db *DB) DeleteProject(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting project %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("project", id)
	}
	return nil
}
