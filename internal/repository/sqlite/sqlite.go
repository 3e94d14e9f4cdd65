// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - Single-server deployments (a portfolio backend is exactly that)
// - Development and testing (use ":memory:" for an in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code: no C compiler needed, works everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql", a generic interface for SQL databases.
// Key types:
//   - sql.DB      a connection pool (NOT a single connection!)
//   - sql.Tx      a transaction
//   - sql.Row     a single result row
//   - sql.Rows    multiple result rows (must be closed!)
//
// One *DB value implements every repository interface. Methods are prefixed
// with the entity they touch (CreateUser, ListProjects, ...) so they can share
// the one type without colliding.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Importing the driver package registers "sqlite" with database/sql at
	// init time. We also use its Error type to recognise constraint failures.
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/devsnap/internal/apperror"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/devsnap.db"  file-based database (persistent)
//   - ":memory:"         in-memory database (great for tests, lost on close)
//
// PRAGMAS IN THE DSN:
// PRAGMA statements are per connection, and sql.DB opens connections lazily.
// Running "PRAGMA foreign_keys=ON" once after Open would only configure the
// first connection. Passing _pragma parameters in the DSN makes the driver run
// them on every new connection, so ON DELETE CASCADE works everywhere.
func New(dbPath string) (*DB, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" gets its OWN empty database. Pinning the
	// pool to a single connection keeps the schema visible to every query.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping verifies the connection actually works.
	// Without this, a bad path or permissions issue would only surface
	// on the first query, which is much harder to debug.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := newWithConn(conn)

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// newWithConn wraps an already-open pool without migrating it.
// Tests use it to put a sqlmock connection behind the repository.
func newWithConn(conn *sql.DB) *DB {
	return &DB{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema.
//
// CREATE TABLE IF NOT EXISTS is idempotent, so this runs on every start.
//
// NULLABLE UNIQUE COLUMNS:
// users.email and users.github_id are UNIQUE but nullable. SQLite treats every
// NULL as distinct, so many users may have no email while two users can never
// share one. The github_id constraint is what settles concurrent first logins
// of the same GitHub account: only one INSERT can win.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL,
			email            TEXT UNIQUE,
			github_id        TEXT UNIQUE,
			github_username  TEXT,
			bio              TEXT,
			profile_image    TEXT,
			theme_preference TEXT NOT NULL DEFAULT 'light',
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// ON DELETE CASCADE: deleting a user deletes their projects and blogs.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT,
			tech_stack  TEXT NOT NULL DEFAULT '[]',
			github_link TEXT,
			demo_link   TEXT,
			summary     TEXT,
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_projects_user_id ON projects(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating projects table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS blogs (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			summary    TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_blogs_user_id ON blogs(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating blogs table: %w", err)
	}

	return nil
}

// uniqueViolation reports whether err is a UNIQUE constraint failure and, if
// so, which column caused it.
//
// modernc reports it as *sqlite.Error with a message like
// "constraint failed: UNIQUE constraint failed: users.email (2067)".
// The code carries the extended result code; its low byte is SQLITE_CONSTRAINT.
func uniqueViolation(err error) (column string, ok bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return "", false
	}

	const marker = "UNIQUE constraint failed: "
	msg := se.Error()
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}

	target := msg[i+len(marker):]
	if j := strings.IndexAny(target, " ,"); j >= 0 {
		target = target[:j]
	}
	if _, col, found := strings.Cut(target, "."); found {
		target = col
	}
	return target, true
}

// foreignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
func foreignKeyViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) &&
		se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(se.Error(), "FOREIGN KEY constraint failed")
}

// translateWriteError maps constraint failures to apperror kinds and wraps
// everything else with op for the log.
func translateWriteError(resource, op string, err error) error {
	if col, ok := uniqueViolation(err); ok {
		return apperror.Conflict(resource, col)
	}
	if foreignKeyViolation(err) {
		return apperror.ValidationFailed("user_id", "owner does not exist")
	}
	return fmt.Errorf("sqlite: %s: %w", op, err)
}

// clampLimit applies the default page size and caps it at max.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
