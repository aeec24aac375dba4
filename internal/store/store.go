// Package store persists projects and their estimation results in SQLite.
//
// The database is a single file opened with the pure Go sqlite driver, so
// estimatord has no CGO or external service dependency. Schema is created
// on open and is idempotent.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// ErrProjectNotFound indicates the requested project ID does not exist.
var ErrProjectNotFound = errors.New("project not found")

// Project is a stored project row. Results are only attached by Get.
type Project struct {
	ID           string
	Name         string
	CreatedAt    string
	DocumentFile string
	Status       string
	Error        string
	FilePath     string
	Results      []Result
}

// Result is one estimated line item belonging to a project.
//
// Hours is nullable: the estimator may decline to produce a number for a
// line item, and that absence must survive storage round-trips.
type Result struct {
	Product  string
	Features string
	Size     string
	Hours    *float64
}

// Store wraps the SQLite database handle.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the database at path and ensures the
// schema exists.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	// busy_timeout makes concurrent handler and watcher access wait
	// instead of surfacing SQLITE_BUSY.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		document_file TEXT,
		status TEXT DEFAULT 'processing',
		error TEXT,
		file_path TEXT
	)`); err != nil {
		return fmt.Errorf("create projects table: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		product TEXT,
		features TEXT,
		size TEXT,
		hours TEXT,
		FOREIGN KEY (project_id) REFERENCES projects(id)
	)`); err != nil {
		return fmt.Errorf("create results table: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Create inserts a new project row. Results are ignored; they are added
// separately once estimation finishes.
func (s *Store) Create(ctx context.Context, p Project) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects
		(id, name, created_at, document_file, status, error, file_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.CreatedAt, p.DocumentFile, p.Status, p.Error, p.FilePath)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// List returns all projects ordered newest first. Results are not attached.
func (s *Store) List(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at,
		COALESCE(document_file, ''), COALESCE(status, ''),
		COALESCE(error, ''), COALESCE(file_path, '')
		FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt,
			&p.DocumentFile, &p.Status, &p.Error, &p.FilePath); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

// Get returns a single project with its results attached.
// Returns ErrProjectNotFound if the ID does not exist.
func (s *Store) Get(ctx context.Context, id string) (Project, error) {
	var p Project
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at,
		COALESCE(document_file, ''), COALESCE(status, ''),
		COALESCE(error, ''), COALESCE(file_path, '')
		FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt,
			&p.DocumentFile, &p.Status, &p.Error, &p.FilePath)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrProjectNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("select project: %w", err)
	}

	results, err := s.resultsFor(ctx, id)
	if err != nil {
		return Project{}, err
	}
	p.Results = results

	return p, nil
}

func (s *Store) resultsFor(ctx context.Context, projectID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(product, ''),
		COALESCE(features, ''), COALESCE(size, ''), COALESCE(hours, '')
		FROM results WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Result
	for rows.Next() {
		var r Result
		var hours string
		if err := rows.Scan(&r.Product, &r.Features, &r.Size, &hours); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Hours = hoursFromText(hours)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return results, nil
}

// Complete attaches the result rows and marks the project completed in
// one transaction. Any stored error message is cleared.
// Returns ErrProjectNotFound if the ID does not exist.
func (s *Store) Complete(ctx context.Context, id string, results []Result) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, r := range results {
		if _, err := tx.ExecContext(ctx, `INSERT INTO results
			(project_id, product, features, size, hours)
			VALUES (?, ?, ?, ?, ?)`,
			id, r.Product, r.Features, r.Size, hoursToText(r.Hours)); err != nil {
			retErr = fmt.Errorf("insert result: %w", err)
			return retErr
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET status = 'completed', error = '' WHERE id = ?`, id)
	if err != nil {
		retErr = fmt.Errorf("update status: %w", err)
		return retErr
	}
	n, err := res.RowsAffected()
	if err != nil {
		retErr = fmt.Errorf("rows affected: %w", err)
		return retErr
	}
	if n == 0 {
		retErr = ErrProjectNotFound
		return retErr
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SetFailed marks a project as failed and records the failure message.
func (s *Store) SetFailed(ctx context.Context, id, message string) error {
	return s.setStatus(ctx, id, "error", message)
}

func (s *Store) setStatus(ctx context.Context, id, status, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, error = ? WHERE id = ?`, status, message, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// Count returns the number of stored projects.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

// Delete removes a project and its results, returning the stored document
// file path so the caller can clean up on disk.
// Returns ErrProjectNotFound if the ID does not exist.
func (s *Store) Delete(ctx context.Context, id string) (filePath string, retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(file_path, '') FROM projects WHERE id = ?`, id).Scan(&filePath)
	if errors.Is(err, sql.ErrNoRows) {
		retErr = ErrProjectNotFound
		return "", retErr
	}
	if err != nil {
		retErr = fmt.Errorf("select file path: %w", err)
		return "", retErr
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE project_id = ?`, id); err != nil {
		retErr = fmt.Errorf("delete results: %w", err)
		return "", retErr
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		retErr = fmt.Errorf("delete project: %w", err)
		return "", retErr
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return filePath, nil
}

// Hours is stored as TEXT with empty string meaning "no estimate", matching
// the nullable wire representation.

func hoursToText(h *float64) string {
	if h == nil {
		return ""
	}
	return strconv.FormatFloat(*h, 'f', -1, 64)
}

func hoursFromText(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
