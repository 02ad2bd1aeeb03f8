package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	err := Init(Config{
		Debug:     false,
		ConfigDir: configDir,
	})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logDir := filepath.Join(configDir, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Log directory was not created: %s", logDir)
	}

	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}

	Debug("Test debug message")
	Info("Test info message", "goal_id", 1)
	Warn("Test warning message")
	Error("Test error message")

	logFile := filepath.Join(logDir, "goaltrack.log")
	info, err := os.Stat(logFile)
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Log file is empty after logging at info level")
	}
}

func TestInitDebugMode(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{Debug: true, ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger in debug mode: %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}
	Debug("Test debug message in debug mode")
}

func TestLoggingWithoutInit(t *testing.T) {
	saved := Logger
	Logger = nil
	defer func() { Logger = saved }()

	// None of these may panic when the logger was never initialized
	Debug("no-op")
	Info("no-op")
	Warn("no-op")
	Error("no-op")
}

func TestGoalHelpersShareKeys(t *testing.T) {
	configDir := t.TempDir()
	if err := Init(Config{Debug: false, ConfigDir: configDir}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	saved := Logger
	t.Cleanup(func() { Logger = saved })
	Logger.SetLevel(log.DebugLevel)

	Rollover(7, "week", time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
	Progress("add progress", 7, 2.5, 12.5)
	FutureStamp(8, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
	Evolution(1, 4, "rebuild_from_v1")
	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(configDir, "logs", "goaltrack.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"goal=7 class=week from=2024-05-05 to=2024-05-06",
		"op=\"add progress\" goal=7 amount=2.5 current=12.5",
		"goal=8 last_update=2024-05-09 today=2024-05-06",
		"from=1 to=4 step=rebuild_from_v1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestCloseWithoutInit(t *testing.T) {
	if err := Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}
