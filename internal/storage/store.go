// Package storage persists goals, daily plans and settings in sqlite or
// postgres through sqlx. Opening a store evolves its schema first.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/goaltrack/internal/backup"
	"github.com/julianstephens/goaltrack/internal/constants"
	apperrors "github.com/julianstephens/goaltrack/internal/errors"
	"github.com/julianstephens/goaltrack/internal/logger"
	"github.com/julianstephens/goaltrack/internal/migration"
	"github.com/julianstephens/goaltrack/internal/utils"
)

// _txlock=immediate takes the write lock at BEGIN so busy_timeout applies;
// a deferred transaction upgrading its lock in WAL mode fails immediately.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"

// Postgres pool limits.
const (
	postgresMaxOpenConns    = 25
	postgresMaxIdleConns    = 25
	postgresConnMaxLifetime = 5 * time.Minute
)

// Config selects and locates the durable store.
type Config struct {
	Driver     string // constants.DriverSQLite or constants.DriverPostgres
	Path       string // sqlite database file
	ConnString string // postgres connection string
	// Create allows a missing sqlite file to be created. Without it, opening
	// a missing store fails so a typo in --config does not start a new one.
	Create bool
	Clock  utils.Clock
	// ClockFor, when set, replaces Clock for schema evolution once the
	// stored timezone setting is known. stored is empty when the store has
	// no such setting yet.
	ClockFor func(stored string) (utils.Clock, error)
	// Log receives schema evolution progress. Nil logs at info level.
	Log func(string)
}

// Store is an open, schema-current database.
type Store struct {
	db     *sqlx.DB
	driver string
	path   string
}

// Open connects to the configured store and brings its schema to the latest
// version. A SchemaEvolutionError means the store must not be used.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		cfg.Clock = utils.SystemClock{}
	}
	if cfg.Log == nil {
		cfg.Log = func(msg string) { logger.Info(strings.TrimSpace(msg)) }
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case constants.DriverSQLite, "":
		cfg.Driver = constants.DriverSQLite
		db, err = openSQLite(ctx, cfg)
	case constants.DriverPostgres:
		db, err = openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, driver: cfg.Driver, path: cfg.Path}
	if err := s.evolve(ctx, cfg); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("Store opened", "driver", s.driver, "path", s.path)
	return s, nil
}

// Inspect reports the schema evolution Open would perform without
// performing it.
func Inspect(ctx context.Context, cfg Config) (current, target int, path []migration.Step, err error) {
	var db *sqlx.DB
	switch cfg.Driver {
	case constants.DriverSQLite, "":
		cfg.Driver = constants.DriverSQLite
		db, err = openSQLite(ctx, cfg)
	case constants.DriverPostgres:
		db, err = openPostgres(ctx, cfg)
	default:
		return 0, 0, nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return 0, 0, nil, err
	}
	defer db.Close()

	steps, err := migration.EmbeddedSteps(cfg.Driver)
	if err != nil {
		return 0, 0, nil, err
	}
	runner, err := migration.NewRunner(db.DB, steps, cfg.Driver)
	if err != nil {
		return 0, 0, nil, err
	}
	return runner.Pending(ctx)
}

func openSQLite(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store requires a database path")
	}
	if _, err := os.Stat(cfg.Path); os.IsNotExist(err) {
		if !cfg.Create {
			return nil, fmt.Errorf("storage not initialized at %s, run '%s init' first", cfg.Path, constants.AppName)
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", cfg.Path+"?"+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func openPostgres(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if cfg.ConnString == "" {
		return nil, fmt.Errorf("postgres store requires a connection string")
	}
	if err := ValidateConnString(cfg.ConnString); err != nil {
		return nil, err
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(postgresMaxOpenConns)
	db.SetMaxIdleConns(postgresMaxIdleConns)
	db.SetConnMaxLifetime(postgresConnMaxLifetime)
	return db, nil
}

// evolve snapshots an existing sqlite store and then applies pending steps.
func (s *Store) evolve(ctx context.Context, cfg Config) error {
	steps, err := migration.EmbeddedSteps(s.driver)
	if err != nil {
		return err
	}
	runner, err := migration.NewRunner(s.db.DB, steps, s.driver)
	if err != nil {
		return err
	}

	current, target, path, err := runner.Pending(ctx)
	if err != nil {
		if apperrors.IsSchemaEvolution(err) {
			return err
		}
		return &apperrors.SchemaEvolutionError{From: current, To: target, Reason: "cannot read schema state", Err: err}
	}
	if len(path) == 0 {
		return nil
	}

	clock := cfg.Clock
	if cfg.ClockFor != nil {
		stored := s.storedTimezone(ctx)
		if c, err := cfg.ClockFor(stored); err != nil {
			logger.Warn("Ignoring stored timezone for schema evolution", "timezone", stored, "error", err)
		} else {
			clock = c
		}
	}
	runner.WithClock(clock)

	if s.driver == constants.DriverSQLite && current > 0 {
		if _, err := backup.NewManager(s.path).Create(ctx, fmt.Sprintf("pre-v%d", target)); err != nil {
			return &apperrors.SchemaEvolutionError{From: current, To: target, Reason: "backup before evolution failed", Err: err}
		}
	}

	_, err = runner.Evolve(ctx, cfg.Log)
	return err
}

// storedTimezone reads the timezone setting directly, before the schema is
// known to be current. Stores without a settings table report "".
func (s *Store) storedTimezone(ctx context.Context) string {
	var tz string
	err := s.db.GetContext(ctx, &tz, s.db.Rebind(`SELECT value FROM settings WHERE key = ?`), constants.SettingTimezone)
	if err != nil {
		logger.Debug("No stored timezone before evolution", "error", err)
		return ""
	}
	return tz
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string { return s.driver }

// Path returns the sqlite file path, empty for postgres.
func (s *Store) Path() string { return s.path }

// Repo returns a repository running outside any transaction.
func (s *Store) Repo() *Repo {
	return &Repo{q: s.db}
}

// SchemaVersion reports the recorded and latest schema versions.
func (s *Store) SchemaVersion(ctx context.Context) (current, latest int, err error) {
	steps, err := migration.EmbeddedSteps(s.driver)
	if err != nil {
		return 0, 0, err
	}
	runner, err := migration.NewRunner(s.db.DB, steps, s.driver)
	if err != nil {
		return 0, 0, err
	}
	if current, err = runner.GetCurrentVersion(ctx); err != nil {
		return 0, 0, err
	}
	latest, err = runner.GetLatestVersion()
	return current, latest, err
}

// WithTx runs fn with a repository bound to one transaction. The transaction
// commits only if fn returns nil. NotFound and Validation errors from fn are
// returned as-is; any other failure is reported as a TransactionError for op.
func (s *Store) WithTx(ctx context.Context, op string, fn func(r *Repo) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &apperrors.TransactionError{Op: op, Err: fmt.Errorf("begin tx: %w", err)}
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&Repo{q: tx}); err != nil {
		_ = tx.Rollback()
		if apperrors.IsRecoverable(err) || apperrors.IsTransaction(err) {
			return err
		}
		logger.Debug("Transaction rolled back", "op", op, "error", err)
		return &apperrors.TransactionError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &apperrors.TransactionError{Op: op, Err: fmt.Errorf("commit tx: %w", err)}
	}
	committed = true
	return nil
}
