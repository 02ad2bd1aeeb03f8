// Package migration brings a store from the schema version it was written
// with to the version this binary understands.
//
// Steps are registered by (from, to) pair rather than as a linear chain, so a
// store several versions behind can take a single direct step when one
// exists.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/julianstephens/goaltrack/internal/constants"
	apperrors "github.com/julianstephens/goaltrack/internal/errors"
	"github.com/julianstephens/goaltrack/internal/logger"
	"github.com/julianstephens/goaltrack/internal/utils"
	"github.com/julianstephens/goaltrack/migrations"
)

const (
	DriverSQLite   = constants.DriverSQLite
	DriverPostgres = constants.DriverPostgres
)

// Step is one registered schema evolution.
type Step struct {
	From int
	To   int
	Name string
	SQL  string
}

func (s Step) String() string {
	return fmt.Sprintf("%03d_%03d_%s", s.From, s.To, s.Name)
}

// Key identifies a step by the versions it connects.
type Key struct {
	From int
	To   int
}

// Runner manages schema evolution for one database handle.
type Runner struct {
	db     *sql.DB
	fs     fs.FS
	driver string
	clock  utils.Clock
}

// NewRunner creates a runner reading FFF_TTT_name.sql files from stepFS.
func NewRunner(db *sql.DB, stepFS fs.FS, driver string) (*Runner, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	return &Runner{
		db:     db,
		fs:     stepFS,
		driver: driver,
		clock:  utils.SystemClock{},
	}, nil
}

// EmbeddedSteps returns the steps compiled into the binary for driver.
func EmbeddedSteps(driver string) (fs.FS, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return fs.Sub(migrations.FS, driver)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// WithClock sets the clock used to expand ${today} in step SQL.
func (r *Runner) WithClock(c utils.Clock) *Runner {
	r.clock = c
	return r
}

func (r *Runner) rebind(query string) string {
	if r.driver == DriverPostgres {
		return sqlx.Rebind(sqlx.DOLLAR, query)
	}
	return query
}

// EnsureSchemaVersionTable creates the schema_version table if it doesn't exist
func (r *Runner) EnsureSchemaVersionTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`)
	return err
}

// GetCurrentVersion returns the recorded schema version, or 0 for a store
// that has never been initialized.
func (r *Runner) GetCurrentVersion(ctx context.Context) (int, error) {
	if err := r.EnsureSchemaVersionTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure schema_version table: %w", err)
	}

	var version int
	err := r.db.QueryRowContext(ctx, "SELECT version FROM schema_version").Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// SetVersion records version as the current schema version.
func (r *Runner) SetVersion(ctx context.Context, version int) error {
	if err := r.EnsureSchemaVersionTable(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema_version table: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.writeVersion(ctx, tx, version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *Runner) writeVersion(ctx context.Context, tx *sql.Tx, version int) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("failed to clear version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, r.rebind("INSERT INTO schema_version (version) VALUES (?)"), version); err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	return nil
}

// ReadSteps parses every FFF_TTT_name.sql file into the step table.
func (r *Runner) ReadSteps() (map[Key]Step, error) {
	files, err := fs.ReadDir(r.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read steps directory: %w", err)
	}

	steps := make(map[Key]Step)
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		step, err := parseStepName(file.Name())
		if err != nil {
			return nil, err
		}

		key := Key{From: step.From, To: step.To}
		if existing, ok := steps[key]; ok {
			return nil, fmt.Errorf("duplicate step %03d -> %03d (%s and %s)", step.From, step.To, existing.Name, step.Name)
		}

		content, err := fs.ReadFile(r.fs, file.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read step file %s: %w", file.Name(), err)
		}
		step.SQL = string(content)
		steps[key] = step
	}
	return steps, nil
}

func parseStepName(filename string) (Step, error) {
	parts := strings.SplitN(strings.TrimSuffix(filename, ".sql"), "_", 3)
	if len(parts) < 3 || parts[2] == "" {
		return Step{}, fmt.Errorf("invalid step filename format: %s (expected FFF_TTT_name.sql)", filename)
	}

	from, err := strconv.Atoi(parts[0])
	if err != nil {
		return Step{}, fmt.Errorf("invalid source version in filename %s: %w", filename, err)
	}
	to, err := strconv.Atoi(parts[1])
	if err != nil {
		return Step{}, fmt.Errorf("invalid target version in filename %s: %w", filename, err)
	}
	if from < 0 || to <= from {
		return Step{}, fmt.Errorf("invalid step %s: target version must be greater than source version", filename)
	}

	return Step{From: from, To: to, Name: parts[2]}, nil
}

// LatestVersion is the highest version any step reaches.
func LatestVersion(steps map[Key]Step) int {
	latest := 0
	for k := range steps {
		if k.To > latest {
			latest = k.To
		}
	}
	return latest
}

// GetLatestVersion returns the highest version the registered steps reach.
func (r *Runner) GetLatestVersion() (int, error) {
	steps, err := r.ReadSteps()
	if err != nil {
		return 0, err
	}
	return LatestVersion(steps), nil
}

// Resolve picks the steps that take a store from current to target. An exact
// (current, target) step is used when registered; otherwise the step from
// current reaching furthest without passing target is taken, repeatedly.
func Resolve(steps map[Key]Step, current, target int) ([]Step, error) {
	if current > target {
		return nil, &apperrors.SchemaEvolutionError{
			From:   current,
			To:     target,
			Reason: "store was written by a newer version; upgrade the application",
		}
	}

	var path []Step
	for v := current; v < target; {
		if step, ok := steps[Key{From: v, To: target}]; ok {
			path = append(path, step)
			break
		}

		best, found := Step{}, false
		for k, step := range steps {
			if k.From == v && k.To <= target && (!found || k.To > best.To) {
				best, found = step, true
			}
		}
		if !found {
			return nil, &apperrors.SchemaEvolutionError{
				From:   current,
				To:     target,
				Reason: fmt.Sprintf("no registered step from version %d", v),
			}
		}
		path = append(path, best)
		v = best.To
	}
	return path, nil
}

// Pending returns the current version, the target version and the steps
// Evolve would apply, without changing anything.
func (r *Runner) Pending(ctx context.Context) (int, int, []Step, error) {
	current, err := r.GetCurrentVersion(ctx)
	if err != nil {
		return 0, 0, nil, err
	}
	steps, err := r.ReadSteps()
	if err != nil {
		return current, 0, nil, err
	}
	target := LatestVersion(steps)
	path, err := Resolve(steps, current, target)
	return current, target, path, err
}

// Evolve brings the store to the latest version and returns the number of
// steps applied. Every failure is a SchemaEvolutionError; the store keeps the
// version of the last step that committed.
func (r *Runner) Evolve(ctx context.Context, logFn func(string)) (int, error) {
	if logFn == nil {
		logFn = func(s string) {}
	}

	current, target, path, err := r.Pending(ctx)
	if err != nil {
		if apperrors.IsSchemaEvolution(err) {
			return 0, err
		}
		return 0, &apperrors.SchemaEvolutionError{From: current, To: target, Reason: "cannot read schema state", Err: err}
	}

	if len(path) == 0 {
		logFn(fmt.Sprintf("Database schema is up to date (version %d)", current))
		return 0, nil
	}

	logFn(fmt.Sprintf("Current schema version: %d", current))
	logFn(fmt.Sprintf("Target schema version: %d", target))
	logFn(fmt.Sprintf("Applying %d step(s)...", len(path)))

	startTime := time.Now()
	applied := 0
	for _, step := range path {
		logFn(fmt.Sprintf("  Applying step %d -> %d: %s", step.From, step.To, step.Name))
		if err := r.apply(ctx, step); err != nil {
			return applied, &apperrors.SchemaEvolutionError{
				From:   step.From,
				To:     step.To,
				Reason: "step " + step.String() + " failed",
				Err:    err,
			}
		}
		applied++
		logger.Evolution(step.From, step.To, step.Name)
		logFn(fmt.Sprintf("  ✓ Now at version %d", step.To))
	}

	logFn(fmt.Sprintf("Applied %d step(s) in %v", applied, time.Since(startTime)))
	return applied, nil
}

// ExpandSQL replaces ${today} with the given date. Other $-sequences,
// including postgres placeholders, are kept as written.
func ExpandSQL(query string, today time.Time) string {
	return os.Expand(query, func(name string) string {
		if name == "today" {
			return utils.FormatDate(today)
		}
		return "$" + name
	})
}

// apply runs one step and the version update in a single transaction. On
// SQLite the step runs on a pinned connection with foreign keys disabled so a
// table rebuild does not cascade deletes into child tables.
func (r *Runner) apply(ctx context.Context, step Step) (err error) {
	query := ExpandSQL(step.SQL, utils.Today(r.clock))

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if r.driver == DriverSQLite {
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
			return fmt.Errorf("failed to disable foreign keys: %w", err)
		}
		defer func() {
			if _, perr := conn.ExecContext(context.Background(), "PRAGMA foreign_keys = ON"); perr != nil && err == nil {
				err = fmt.Errorf("failed to re-enable foreign keys: %w", perr)
			}
		}()
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query); err != nil {
		_ = tx.Rollback()
		return err
	}

	if r.driver == DriverSQLite {
		if err := checkForeignKeys(ctx, tx); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := r.writeVersion(ctx, tx, step.To); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	var broken []string
	for rows.Next() {
		var table, parent string
		var rowid sql.NullInt64
		var fkid int
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("foreign key check: %w", err)
		}
		broken = append(broken, fmt.Sprintf("%s row %d -> %s", table, rowid.Int64, parent))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(broken) > 0 {
		sort.Strings(broken)
		return fmt.Errorf("foreign key violations after step: %s", strings.Join(broken, ", "))
	}
	return nil
}

// ValidateVersion checks if the database version is compatible with the application
func (r *Runner) ValidateVersion(ctx context.Context) error {
	current, err := r.GetCurrentVersion(ctx)
	if err != nil {
		return err
	}
	latest, err := r.GetLatestVersion()
	if err != nil {
		return err
	}
	if current > latest {
		return &apperrors.SchemaEvolutionError{
			From:   current,
			To:     latest,
			Reason: "store was written by a newer version; upgrade the application",
		}
	}
	return nil
}
