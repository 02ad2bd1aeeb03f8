// Package logger is goaltrack's structured log. Records go to a rotating
// file beside the database; --debug mirrors them to stderr. Goal, rollover
// and progress records share the key names below so one goal's history can
// be grepped out of the file.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/goaltrack/internal/constants"
)

// Keys used by the goal helpers.
const (
	KeyGoal   = "goal"
	KeyClass  = "class"
	KeyAmount = "amount"
	KeyFrom   = "from"
	KeyTo     = "to"
	KeyOp     = "op"
)

var (
	// Logger is the process-wide logger. Nil until Init; every helper is a
	// no-op before then.
	Logger *log.Logger

	file *lumberjack.Logger
)

type Config struct {
	Debug     bool
	ConfigDir string
}

// Init opens <ConfigDir>/logs/goaltrack.log and installs Logger.
func Init(cfg Config) error {
	logDir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	Close()

	file = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.AppName+".log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level := log.InfoLevel
	var w io.Writer = file
	if cfg.Debug {
		level = log.DebugLevel
		w = io.MultiWriter(os.Stderr, file)
	}

	Logger = log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
		Prefix:          constants.AppName,
	})
	return nil
}

// Close flushes and releases the log file.
func Close() error {
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}

// Fatal logs and exits with status 1.
func Fatal(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Fatal(msg, keyvals...)
	}
	os.Exit(1)
}

func date(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// Rollover records a period reset of one goal.
func Rollover(goalID int64, class string, from, to time.Time) {
	Debug("Rolled over goal", KeyGoal, goalID, KeyClass, class, KeyFrom, date(from), KeyTo, date(to))
}

// FutureStamp records a goal whose last update is after today.
func FutureStamp(goalID int64, lastUpdate, today time.Time) {
	Warn("Goal last updated in the future; skipping rollover",
		KeyGoal, goalID, "last_update", date(lastUpdate), "today", date(today))
}

// Progress records a committed change to a goal's counters. amount is
// negative for subtractions.
func Progress(op string, goalID int64, amount, current float64) {
	Info("Recorded progress", KeyOp, op, KeyGoal, goalID, KeyAmount, amount, "current", current)
}

// Evolution records one applied schema step.
func Evolution(from, to int, name string) {
	Info("Applied schema step", KeyFrom, from, KeyTo, to, "step", name)
}
