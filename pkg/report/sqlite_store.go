package report

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/firmforge/firmforge/pkg/pipeline"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer at a time; the ledger is append-mostly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveRun persists a run result, its domain outcomes, and its topic
// allocations in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, result *pipeline.RunResult) error {
	run, domains, allocs, err := Snapshot(result)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	runQuery := `
		INSERT INTO runs (id, root, status, started_at, completed_at, duration_ms, files, succeeded, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, runQuery,
		run.ID,
		run.Root,
		run.Status,
		run.StartedAt,
		run.CompletedAt,
		run.DurationMS,
		run.Files,
		run.Succeeded,
		run.Failed,
		run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	domainQuery := `
		INSERT INTO domain_results (run_id, domain, status, found, mirror_file, artifacts, violations, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, d := range domains {
		_, err = tx.ExecContext(ctx, domainQuery,
			d.RunID,
			d.Domain,
			d.Status,
			d.Found,
			d.MirrorFile,
			d.Artifacts,
			d.Violations,
			d.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to save %s domain result: %w", d.Domain, err)
		}
	}

	allocQuery := `
		INSERT INTO allocations (run_id, channel, topic_id)
		VALUES (?, ?, ?)
	`
	for _, a := range allocs {
		if _, err := tx.ExecContext(ctx, allocQuery, a.RunID, a.Channel, a.TopicID); err != nil {
			return fmt.Errorf("failed to save allocation for %s: %w", a.Channel, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := `
		SELECT id, root, status, started_at, completed_at, duration_ms, files, succeeded, failed, skipped, created_at
		FROM runs
		WHERE id = ?
	`

	run := &RunRecord{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Root,
		&run.Status,
		&run.StartedAt,
		&run.CompletedAt,
		&run.DurationMS,
		&run.Files,
		&run.Succeeded,
		&run.Failed,
		&run.Skipped,
		&run.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns lists runs with pagination, most recent first
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error) {
	query := `
		SELECT id, root, status, started_at, completed_at, duration_ms, files, succeeded, failed, skipped, created_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*RunRecord{}
	for rows.Next() {
		run := &RunRecord{}
		err := rows.Scan(
			&run.ID,
			&run.Root,
			&run.Status,
			&run.StartedAt,
			&run.CompletedAt,
			&run.DurationMS,
			&run.Files,
			&run.Succeeded,
			&run.Failed,
			&run.Skipped,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// ListDomainResults lists the domain outcomes of a run in storage order
func (s *SQLiteStore) ListDomainResults(ctx context.Context, runID string) ([]*DomainRecord, error) {
	query := `
		SELECT run_id, domain, status, found, mirror_file, artifacts, violations, error
		FROM domain_results
		WHERE run_id = ?
		ORDER BY rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list domain results: %w", err)
	}
	defer rows.Close()

	results := []*DomainRecord{}
	for rows.Next() {
		rec := &DomainRecord{}
		err := rows.Scan(
			&rec.RunID,
			&rec.Domain,
			&rec.Status,
			&rec.Found,
			&rec.MirrorFile,
			&rec.Artifacts,
			&rec.Violations,
			&rec.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain result: %w", err)
		}
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating domain results: %w", err)
	}

	return results, nil
}

// ListAllocations lists a run's topic assignments in allocation order
func (s *SQLiteStore) ListAllocations(ctx context.Context, runID string) ([]*AllocationRecord, error) {
	query := `
		SELECT run_id, channel, topic_id
		FROM allocations
		WHERE run_id = ?
		ORDER BY rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()

	allocs := []*AllocationRecord{}
	for rows.Next() {
		rec := &AllocationRecord{}
		if err := rows.Scan(&rec.RunID, &rec.Channel, &rec.TopicID); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocs = append(allocs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}

	return allocs, nil
}

// DeleteRun deletes a run by ID, cascading to its domain results and
// allocations
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	query := `DELETE FROM runs WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// PruneRuns deletes all but the most recent keep runs and returns the
// number of runs removed
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative: %d", keep)
	}

	query := `
		DELETE FROM runs
		WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
		)
	`

	result, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
