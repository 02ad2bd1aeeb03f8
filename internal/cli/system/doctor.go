package system

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/goaltrack/internal/backup"
	"github.com/julianstephens/goaltrack/internal/cli"
	"github.com/julianstephens/goaltrack/internal/constants"
	"github.com/julianstephens/goaltrack/internal/storage"
	"github.com/julianstephens/goaltrack/internal/tracker"
	"github.com/julianstephens/goaltrack/internal/validation"
)

var (
	processesFunc = ps.Processes
	selfPID       = os.Getpid
)

type DoctorCmd struct{}

type check struct {
	name     string
	warnOnly bool
	run      func() error
}

func (cmd *DoctorCmd) Run(app *cli.Context, ctx context.Context) error {
	fmt.Fprintln(app.Out, "Running diagnostics...")
	fmt.Fprintln(app.Out)

	var (
		store *storage.Store
		tr    *tracker.Tracker
	)
	checks := []check{
		{name: "Database reachable", run: func() error {
			var err error
			if store, err = app.OpenStore(ctx, false); err != nil {
				return err
			}
			tr, err = app.Tracker(ctx)
			return err
		}},
		{name: "Schema version", run: func() error { return checkSchemaVersion(ctx, store) }},
		{name: "Backups present", warnOnly: true, run: func() error { return checkBackupsPresent(store) }},
		{name: "Data validation", run: func() error { return checkData(ctx, tr) }},
		{name: "Single writer", warnOnly: true, run: checkOtherProcesses},
		{name: "Clock/timezone", run: func() error { return checkClock(tr) }},
	}

	hasError := false
	reachable := true
	for i, c := range checks {
		if i > 0 && !reachable && c.name != "Single writer" {
			fmt.Fprintf(app.Out, "⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run()
		switch {
		case err == nil:
			fmt.Fprintf(app.Out, "✓ %s: OK\n", c.name)
		case c.warnOnly:
			fmt.Fprintf(app.Out, "⚠ %s: WARNING\n", c.name)
			fmt.Fprintf(app.Out, "   %v\n", err)
		default:
			fmt.Fprintf(app.Out, "❌ %s: FAIL\n", c.name)
			fmt.Fprintf(app.Out, "   Error: %v\n", err)
			hasError = true
			if i == 0 {
				reachable = false
			}
		}
	}

	fmt.Fprintln(app.Out)
	if hasError {
		fmt.Fprintln(app.Out, "Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Fprintln(app.Out, "All diagnostics passed!")
	return nil
}

func checkSchemaVersion(ctx context.Context, s *storage.Store) error {
	current, latest, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current != latest {
		return fmt.Errorf("schema version %d does not match supported version %d", current, latest)
	}
	return nil
}

func checkBackupsPresent(s *storage.Store) error {
	if s.Driver() != constants.DriverSQLite {
		return nil
	}
	backups, err := backup.NewManager(s.Path()).List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkData(ctx context.Context, tr *tracker.Tracker) error {
	goals, plans, err := tr.Audit(ctx)
	if err != nil {
		return err
	}
	result := validation.New(tr.Today()).Validate(goals, plans)
	if result.HasConflicts() {
		return fmt.Errorf("%d finding(s)\n%s", len(result.Conflicts), indent(result.FormatReport()))
	}
	return nil
}

// checkOtherProcesses warns when another goaltrack process could be writing
// the same goals.
func checkOtherProcesses() error {
	procs, err := processesFunc()
	if err != nil {
		return fmt.Errorf("failed to list processes: %w", err)
	}
	self := selfPID()
	var others []string
	for _, p := range procs {
		name := strings.TrimSuffix(p.Executable(), ".exe")
		if name == constants.AppName && p.Pid() != self {
			others = append(others, fmt.Sprintf("%d", p.Pid()))
		}
	}
	if len(others) > 0 {
		return fmt.Errorf("other %s processes are running (pid %s); concurrent edits of one goal can be lost",
			constants.AppName, strings.Join(others, ", "))
	}
	return nil
}

func checkClock(tr *tracker.Tracker) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	today := tr.Today()
	if d := now.Sub(today).Hours(); d < -48 || d > 48 {
		return fmt.Errorf("evaluation date %s is far from the system clock", today.Format(constants.DateFormat))
	}
	return nil
}

func indent(s string) string {
	return "   " + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n   ")
}
