// Package store persists resolved experiment runs in a SQLite registry so
// later invocations can look up exactly which configuration a run used.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"

	"github.com/trainforge/trainforge/pkg/config"
	"github.com/trainforge/trainforge/pkg/errors"
	"github.com/trainforge/trainforge/pkg/logging"
)

// Run is one recorded resolution run.
type Run struct {
	ID         string
	Experiment string
	Model      string
	Phases     []string
	Resolved   string
	CreatedAt  time.Time
}

// Store is a SQLite-backed run registry. Safe for concurrent use; the
// underlying pool serializes writes.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithLogger supplies a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// Open opens or creates the registry database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New(errors.InvalidInput, "registry path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.StoreFailed, "opening registry database")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			db.Close()
			return nil, err
		}
	}
	if s.logger == nil {
		s.logger = logging.GetLogger()
	}

	if err := s.initDB(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.StoreFailed, "initializing registry schema")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.StoreFailed, "enabling WAL mode")
	}
	pragmas := []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			s.logger.Warn(context.Background(), "failed to set pragma %s: %v", pragma, err)
		}
	}

	return s, nil
}

func (s *Store) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		experiment TEXT NOT NULL,
		model TEXT NOT NULL,
		phases TEXT NOT NULL,
		resolved TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_experiment ON runs(experiment);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// Record persists one resolved configuration under an experiment name.
func (s *Store) Record(ctx context.Context, experiment string, cfg *config.ResolvedConfig) error {
	if err := errors.CheckContext(ctx, "record run"); err != nil {
		return err
	}
	if cfg == nil {
		return errors.New(errors.InvalidInput, "resolved configuration is required")
	}

	exported, err := cfg.Export()
	if err != nil {
		return errors.Wrap(err, errors.StoreFailed, "exporting resolved configuration")
	}
	data, err := yaml.Marshal(exported)
	if err != nil {
		return errors.Wrap(err, errors.StoreFailed, "encoding resolved configuration")
	}

	phases := make([]string, 0, 3)
	for _, name := range cfg.Phases() {
		phases = append(phases, string(name))
	}

	query := `
	INSERT INTO runs (id, experiment, model, phases, resolved, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		cfg.RunID(), experiment, cfg.Model().Name,
		strings.Join(phases, ","), string(data), time.Now().Unix())
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "recording run"),
			errors.Fields{"run_id": cfg.RunID()})
	}

	s.logger.Debug(logging.WithRunID(ctx, cfg.RunID()), "recorded run for experiment %s", experiment)
	return nil
}

// Get returns one recorded run by its identifier.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	query := `
	SELECT id, experiment, model, phases, resolved, created_at
	FROM runs WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "run not found"),
			errors.Fields{"run_id": runID})
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.StoreFailed, "reading run")
	}
	return run, nil
}

// List returns the recorded runs of one experiment, newest first.
func (s *Store) List(ctx context.Context, experiment string) ([]Run, error) {
	query := `
	SELECT id, experiment, model, phases, resolved, created_at
	FROM runs WHERE experiment = ?
	ORDER BY created_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, experiment)
	if err != nil {
		return nil, errors.Wrap(err, errors.StoreFailed, "listing runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.StoreFailed, "scanning run row")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.StoreFailed, "iterating runs")
	}
	return runs, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var phases string
	var created int64
	if err := row.Scan(&run.ID, &run.Experiment, &run.Model, &phases, &run.Resolved, &created); err != nil {
		return nil, err
	}
	if phases != "" {
		run.Phases = strings.Split(phases, ",")
	}
	run.CreatedAt = time.Unix(created, 0)
	return &run, nil
}
