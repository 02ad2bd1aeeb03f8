package backup

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/goaltrack/internal/constants"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "goaltrack.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE goals (id INTEGER PRIMARY KEY, name TEXT, current_progress REAL);
		INSERT INTO goals (id, name, current_progress) VALUES (1, 'Read', 120), (2, 'Run', 42.5);
	`)
	if err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
	return dbPath
}

// newTestManager returns a manager whose clock advances one minute per
// snapshot so names and ordering are deterministic.
func newTestManager(dbPath string) *Manager {
	m := NewManager(dbPath)
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	return m
}

func countGoals(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM goals").Scan(&count); err != nil {
		t.Fatalf("failed to count goals in %s: %v", path, err)
	}
	return count
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := newTestManager(dbPath)

	path, err := mgr.Create(context.Background(), "pre-v4")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(filepath.Dir(dbPath), constants.BackupDirName) {
		t.Errorf("backup written to unexpected directory: %s", path)
	}
	if !strings.Contains(filepath.Base(path), "_pre-v4") {
		t.Errorf("backup name %q does not carry the reason", filepath.Base(path))
	}
	if got := countGoals(t, path); got != 2 {
		t.Errorf("expected 2 goals in backup, got %d", got)
	}
}

func TestCreateMissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(context.Background(), ""); err == nil {
		t.Error("expected error for missing database")
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := newTestManager(dbPath)

	for i := 0; i < constants.MaxBackups+5; i++ {
		if _, err := mgr.Create(context.Background(), ""); err != nil {
			t.Fatalf("Create #%d failed: %v", i, err)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != constants.MaxBackups {
		t.Errorf("expected %d backups after rotation, got %d", constants.MaxBackups, len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups are not sorted newest first at %d", i)
		}
	}
}

func TestList(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := newTestManager(dbPath)

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected 0 backups initially, got %d", len(backups))
	}

	for _, reason := range []string{"manual", "pre-v4", ""} {
		if _, err := mgr.Create(context.Background(), reason); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(mgr.Dir(), "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	backups, err = mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(backups))
	}
	if backups[0].Reason != "" || backups[1].Reason != "pre-v4" || backups[2].Reason != "manual" {
		t.Errorf("unexpected reasons: %q %q %q", backups[0].Reason, backups[1].Reason, backups[2].Reason)
	}
	for _, b := range backups {
		if b.Size == 0 || b.Timestamp.IsZero() {
			t.Errorf("incomplete backup info: %+v", b)
		}
	}
}

func TestUniqueFilenames(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	fixed := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return fixed }

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		path, err := mgr.Create(context.Background(), "same")
		if err != nil {
			t.Fatalf("Create #%d failed: %v", i, err)
		}
		if seen[path] {
			t.Errorf("duplicate backup filename: %s", filepath.Base(path))
		}
		seen[path] = true
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 5 {
		t.Errorf("expected counter-suffixed names to be listed, got %d", len(backups))
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := newTestManager(dbPath)
	ctx := context.Background()

	snapshot, err := mgr.Create(ctx, "manual")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO goals (id, name, current_progress) VALUES (3, 'Write', 0)"); err != nil {
		t.Fatal(err)
	}
	db.Close()
	if got := countGoals(t, dbPath); got != 3 {
		t.Fatalf("expected 3 goals before restore, got %d", got)
	}

	previous, err := mgr.Restore(ctx, snapshot)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := countGoals(t, dbPath); got != 2 {
		t.Errorf("expected 2 goals after restore, got %d", got)
	}
	if previous == "" {
		t.Fatal("expected the replaced database to be snapshotted")
	}
	if got := countGoals(t, previous); got != 3 {
		t.Errorf("pre-restore snapshot has %d goals, want 3", got)
	}
}

func TestRestoreRejectsInvalidFile(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := newTestManager(dbPath)

	invalid := filepath.Join(t.TempDir(), "invalid.db")
	if err := os.WriteFile(invalid, []byte("not a database"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Restore(context.Background(), invalid); err == nil {
		t.Error("Restore should fail for an invalid file")
	}
	if _, err := mgr.Restore(context.Background(), filepath.Join(t.TempDir(), "nope.db")); err == nil {
		t.Error("Restore should fail for a missing file")
	}
	if got := countGoals(t, dbPath); got != 2 {
		t.Errorf("database changed after failed restore: %d goals", got)
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name       string
		wantReason string
		wantOK     bool
	}{
		{"goaltrack-20240615-103000.db", "", true},
		{"goaltrack-20240615-103000_pre-v4.db", "pre-v4", true},
		{"goaltrack-20240615-103000_pre-v4.2.db", "pre-v4", true},
		{"goaltrack-notatime.db", "", false},
		{"other-20240615-103000.db", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, reason, ok := parseName(tt.name)
			if ok != tt.wantOK || reason != tt.wantReason {
				t.Errorf("parseName(%q) = (%q, %v), want (%q, %v)", tt.name, reason, ok, tt.wantReason, tt.wantOK)
			}
		})
	}
}
