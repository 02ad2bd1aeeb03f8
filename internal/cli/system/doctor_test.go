package system

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/goaltrack/internal/cli"
	"github.com/julianstephens/goaltrack/internal/models"
)

type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

func stubProcesses(t *testing.T, procs []ps.Process, err error) {
	t.Helper()
	origProcs, origSelf := processesFunc, selfPID
	processesFunc = func() ([]ps.Process, error) { return procs, err }
	selfPID = func() int { return 100 }
	t.Cleanup(func() {
		processesFunc, selfPID = origProcs, origSelf
	})
}

func TestCheckOtherProcesses(t *testing.T) {
	t.Run("only self", func(t *testing.T) {
		stubProcesses(t, []ps.Process{
			fakeProcess{100, "goaltrack"},
			fakeProcess{200, "bash"},
			fakeProcess{300, "goaltrack-helper"},
		}, nil)
		if err := checkOtherProcesses(); err != nil {
			t.Errorf("checkOtherProcesses() = %v, want nil", err)
		}
	})

	t.Run("another writer", func(t *testing.T) {
		stubProcesses(t, []ps.Process{
			fakeProcess{100, "goaltrack"},
			fakeProcess{201, "goaltrack"},
			fakeProcess{202, "goaltrack.exe"},
		}, nil)
		err := checkOtherProcesses()
		if err == nil {
			t.Fatal("checkOtherProcesses() = nil, want warning")
		}
		if !strings.Contains(err.Error(), "201, 202") {
			t.Errorf("error = %q, want both pids", err)
		}
	})

	t.Run("listing fails", func(t *testing.T) {
		stubProcesses(t, nil, errors.New("permission denied"))
		if err := checkOtherProcesses(); err == nil {
			t.Error("checkOtherProcesses() = nil, want error")
		}
	})
}

func newApp(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app := cli.NewContext(cli.Globals{Config: filepath.Join(t.TempDir(), "goals.db"), TZ: "UTC"})
	app.Out = &out
	app.In = strings.NewReader("")
	t.Cleanup(app.Close)
	return app, &out
}

func TestDoctorUnreachableDatabase(t *testing.T) {
	stubProcesses(t, nil, nil)
	app, out := newApp(t)

	err := (&DoctorCmd{}).Run(app, context.Background())
	if err == nil {
		t.Fatal("Run() = nil, want failure for a missing database")
	}
	got := out.String()
	if !strings.Contains(got, "❌ Database reachable: FAIL") {
		t.Errorf("output missing reachability failure:\n%s", got)
	}
	if !strings.Contains(got, "⊘ Schema version: SKIPPED") {
		t.Errorf("schema check was not skipped:\n%s", got)
	}
	if !strings.Contains(got, "✓ Single writer: OK") {
		t.Errorf("single writer check should still run:\n%s", got)
	}
}

func TestDoctorHealthyStore(t *testing.T) {
	stubProcesses(t, nil, nil)
	app, out := newApp(t)
	ctx := context.Background()

	if err := (&InitCmd{}).Run(app, ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	tr, err := app.Tracker(ctx)
	if err != nil {
		t.Fatalf("Tracker() error = %v", err)
	}
	if _, err := tr.CreateGoal(ctx, models.GoalInput{Name: "Run", Unit: "km", YearlyTarget: models.Float(100)}); err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	out.Reset()

	if err := (&DoctorCmd{}).Run(app, ctx); err != nil {
		t.Fatalf("Run() error = %v\n%s", err, out)
	}
	got := out.String()
	for _, want := range []string{
		"✓ Database reachable: OK",
		"✓ Schema version: OK",
		"⚠ Backups present: WARNING",
		"✓ Data validation: OK",
		"✓ Clock/timezone: OK",
		"All diagnostics passed!",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestMigrateUpToDate(t *testing.T) {
	app, out := newApp(t)
	ctx := context.Background()
	if err := (&InitCmd{}).Run(app, ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	app.Close()
	out.Reset()

	if err := (&MigrateCmd{DryRun: true}).Run(app, ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out.String(), "Schema is up to date") {
		t.Errorf("output = %q", out.String())
	}
}

func TestIndent(t *testing.T) {
	if got := indent("a\nb\n"); got != "   a\n   b" {
		t.Errorf("indent() = %q", got)
	}
}
