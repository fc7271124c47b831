// Package cache persists last-known-good collection snapshots in a local
// SQLite database so a fresh session can render something useful while
// the server is unreachable.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/boardsync/boardsync/entity"
)

//go:embed schema.sql
var schemaFS embed.FS

// Snapshots is a SQLite-backed snapshot store. Each save replaces the
// previous snapshot wholesale; position columns preserve collection
// order across a round trip.
type Snapshots struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Snapshots store.
type Option func(*Snapshots)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Snapshots) {
		s.logger = logger
	}
}

// Open creates or opens the snapshot database at path, creating parent
// directories and applying the schema as needed.
func Open(path string, opts ...Option) (*Snapshots, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Snapshots{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Snapshots) Close() error {
	return s.db.Close()
}

// SaveProjects replaces the stored project snapshot.
func (s *Snapshots) SaveProjects(ctx context.Context, projects []entity.Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM projects"); err != nil {
		return fmt.Errorf("clear project snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO projects (id, name, description, created_at, position) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare project insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, p := range projects {
		createdAt := ""
		if !p.CreatedAt.IsZero() {
			createdAt = p.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Description, createdAt, i); err != nil {
			return fmt.Errorf("insert project %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// LoadProjects returns the stored project snapshot in saved order.
func (s *Snapshots) LoadProjects(ctx context.Context) ([]entity.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM projects ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query project snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []entity.Project
	for rows.Next() {
		var p entity.Project
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		if createdAt != "" {
			if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
				p.CreatedAt = ts
			}
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// SaveTasks replaces the stored task snapshot for one project. Snapshots
// for other projects are untouched.
func (s *Snapshots) SaveTasks(ctx context.Context, projectID string, tasks []entity.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin task snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("clear task snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO tasks (id, project_id, title, status, priority, due_date, position) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare task insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, t := range tasks {
		var dueDate any
		if t.DueDate != nil {
			dueDate = t.DueDate.UTC().Format(time.RFC3339Nano)
		}
		if _, err := stmt.ExecContext(ctx, t.ID, t.ProjectID, t.Title, string(t.Status), string(t.Priority), dueDate, i); err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// LoadTasks returns the stored task snapshot for one project in saved
// order.
func (s *Snapshots) LoadTasks(ctx context.Context, projectID string) ([]entity.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, project_id, title, status, priority, due_date FROM tasks WHERE project_id = ? ORDER BY position",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("query task snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []entity.Task
	for rows.Next() {
		var t entity.Task
		var status, priority string
		var dueDate sql.NullString
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &status, &priority, &dueDate); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		t.Status = entity.Status(status)
		t.Priority = entity.Priority(priority)
		if dueDate.Valid && dueDate.String != "" {
			if ts, err := time.Parse(time.RFC3339Nano, dueDate.String); err == nil {
				t.DueDate = &ts
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
