// Package history keeps a record of every deployment attempt in a
// SQLite database inside the deployment base.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeFormat has fixed width so stored timestamps sort as text
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Status of a deployment attempt
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record is one deployment attempt
type Record struct {
	ID         string     `json:"id" yaml:"id"`
	Commit     string     `json:"commit" yaml:"commit"`
	Ref        string     `json:"ref,omitempty" yaml:"ref,omitempty"`
	Status     Status     `json:"status" yaml:"status"`
	Services   []string   `json:"services" yaml:"services"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Recorder is what the deployer needs from a history backend
type Recorder interface {
	Begin(ctx context.Context, commit, ref string) (*Record, error)
	Finish(ctx context.Context, rec *Record, services []string, err error) error
}

// Nop is a Recorder that keeps nothing
type Nop struct{}

func (Nop) Begin(_ context.Context, commit, ref string) (*Record, error) {
	return &Record{Commit: commit, Ref: ref, Status: StatusRunning, StartedAt: time.Now().UTC()}, nil
}

func (Nop) Finish(_ context.Context, rec *Record, services []string, err error) error {
	finish(rec, services, err, time.Now().UTC())
	return nil
}

// Store is a SQLite-backed Recorder
type Store struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

var _ Recorder = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates it
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrHistory, "failed to open %s", path)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.ErrHistory, "failed to open %s", path)
	}

	if err := runMigrations(db.DB); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.ErrHistory, "failed to migrate %s", path)
	}

	return &Store{db: db, logger: logging.GetLogger("history")}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin records the start of a deployment
func (s *Store) Begin(ctx context.Context, commit, ref string) (*Record, error) {
	rec := &Record{
		ID:        uuid.New().String(),
		Commit:    commit,
		Ref:       ref,
		Status:    StatusRunning,
		Services:  []string{},
		StartedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO deployments (id, commit_id, ref, status, services, error, started_at)
		VALUES (:id, :commit_id, :ref, :status, '[]', '', :started_at)`
	row := map[string]any{
		"id":         rec.ID,
		"commit_id":  rec.Commit,
		"ref":        rec.Ref,
		"status":     string(rec.Status),
		"started_at": rec.StartedAt.Format(timeFormat),
	}
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return nil, errors.Wrapf(err, errors.ErrHistory, "failed to record deployment of %s", commit)
	}

	s.logger.Debug().Str("id", rec.ID).Str("commit", commit).Msg("deployment recorded")
	return rec, nil
}

// Finish marks rec succeeded, or failed with the text of deployErr
func (s *Store) Finish(ctx context.Context, rec *Record, services []string, deployErr error) error {
	finish(rec, services, deployErr, time.Now().UTC())

	servicesJSON, err := json.Marshal(rec.Services)
	if err != nil {
		return errors.Wrap(err, errors.ErrHistory, "failed to serialize services")
	}

	query := `
		UPDATE deployments
		SET status = :status, services = :services, error = :error, finished_at = :finished_at
		WHERE id = :id`
	row := map[string]any{
		"id":          rec.ID,
		"status":      string(rec.Status),
		"services":    string(servicesJSON),
		"error":       rec.Error,
		"finished_at": rec.FinishedAt.Format(timeFormat),
	}
	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return errors.Wrapf(err, errors.ErrHistory, "failed to finish deployment %s", rec.ID)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.Newf(errors.ErrNotFound, "deployment %s not found", rec.ID)
	}
	return nil
}

// recordRow is a deployments row
type recordRow struct {
	ID         string         `db:"id"`
	Commit     string         `db:"commit_id"`
	Ref        string         `db:"ref"`
	Status     string         `db:"status"`
	Services   string         `db:"services"`
	Error      string         `db:"error"`
	StartedAt  string         `db:"started_at"`
	FinishedAt sql.NullString `db:"finished_at"`
}

// List returns up to limit records, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, commit_id, ref, status, services, error, started_at, finished_at
		FROM deployments ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to list deployments")
	}

	records := make([]Record, 0, len(rows))
	for i := range rows {
		rec, err := rowToRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get returns the record with id
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, `SELECT id, commit_id, ref, status, services, error, started_at, finished_at
		FROM deployments WHERE id = ?`, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Newf(errors.ErrNotFound, "deployment %s not found", id)
		}
		return nil, errors.Wrapf(err, errors.ErrHistory, "failed to load deployment %s", id)
	}
	rec, err := rowToRecord(&row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func rowToRecord(row *recordRow) (Record, error) {
	rec := Record{
		ID:     row.ID,
		Commit: row.Commit,
		Ref:    row.Ref,
		Status: Status(row.Status),
		Error:  row.Error,
	}
	if err := json.Unmarshal([]byte(row.Services), &rec.Services); err != nil {
		return rec, errors.Wrapf(err, errors.ErrHistory, "corrupt services for deployment %s", row.ID)
	}
	started, err := time.Parse(timeFormat, row.StartedAt)
	if err != nil {
		return rec, errors.Wrapf(err, errors.ErrHistory, "corrupt start time for deployment %s", row.ID)
	}
	rec.StartedAt = started
	if row.FinishedAt.Valid {
		finished, err := time.Parse(timeFormat, row.FinishedAt.String)
		if err != nil {
			return rec, errors.Wrapf(err, errors.ErrHistory, "corrupt finish time for deployment %s", row.ID)
		}
		rec.FinishedAt = &finished
	}
	return rec, nil
}

func finish(rec *Record, services []string, err error, at time.Time) {
	rec.Services = append([]string{}, services...)
	rec.FinishedAt = &at
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		return
	}
	rec.Status = StatusSucceeded
	rec.Error = ""
}
