// Package cli holds the state shared by goaltrack's kong commands. Command
// implementations live in the subpackages.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/goaltrack/internal/constants"
	"github.com/julianstephens/goaltrack/internal/keyring"
	"github.com/julianstephens/goaltrack/internal/logger"
	"github.com/julianstephens/goaltrack/internal/storage"
	"github.com/julianstephens/goaltrack/internal/tracker"
	"github.com/julianstephens/goaltrack/internal/utils"
)

// Globals are the flags every command accepts.
type Globals struct {
	Config string `help:"SQLite file path or PostgreSQL connection string. PostgreSQL passwords must NOT be embedded; use PGPASSWORD, ~/.pgpass or the OS keyring." env:"GOALTRACK_CONFIG" default:"${config_path}"`
	Debug  bool   `help:"Write debug logs to stderr." env:"GOALTRACK_DEBUG"`
	Week   string `help:"Week convention for rollover (iso|us). Overrides the stored setting." env:"GOALTRACK_WEEK"`
	TZ     string `name:"tz" help:"IANA timezone used to decide what day it is. Overrides the stored setting." env:"GOALTRACK_TZ"`
}

type Context struct {
	Globals
	Out io.Writer
	In  io.Reader

	store   *storage.Store
	tracker *tracker.Tracker
}

func NewContext(g Globals) *Context {
	return &Context{Globals: g, Out: os.Stdout, In: os.Stdin}
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// ConfigDir is where logs live: beside the sqlite file, or the default
// config directory for postgres.
func (c *Context) ConfigDir() string {
	if c.Config != "" && !storage.IsPostgresConnString(c.Config) {
		return filepath.Dir(ExpandPath(c.Config))
	}
	return filepath.Dir(ExpandPath(constants.DefaultConfigPath))
}

// clock answers "what day is it" before settings can be read.
func (c *Context) clock() utils.Clock {
	loc, err := utils.LoadLocation(c.TZ)
	if err != nil {
		logger.Warn("Ignoring invalid timezone override", "tz", c.TZ, "error", err)
		loc = time.Local
	}
	return utils.SystemClock{Location: loc}
}

// evolutionClock picks the clock schema evolution stamps dates with, using
// the same precedence as the tracker: --tz, then the stored timezone.
func (c *Context) evolutionClock(stored string) (utils.Clock, error) {
	tz := c.TZ
	if tz == "" {
		tz = stored
	}
	loc, err := utils.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return utils.SystemClock{Location: loc}, nil
}

// StoreConfig decides which store to open. A postgres connection string in
// --config wins; with the default --config, a connection string from the
// environment or keyring selects postgres; otherwise --config is a sqlite file.
func (c *Context) StoreConfig(create bool) (storage.Config, error) {
	cfg := storage.Config{Create: create, Clock: c.clock(), ClockFor: c.evolutionClock}

	if storage.IsPostgresConnString(c.Config) {
		cfg.Driver = constants.DriverPostgres
		cfg.ConnString = c.Config
		return cfg, nil
	}

	if c.Config == "" || c.Config == constants.DefaultConfigPath {
		connStr, source, err := keyring.ResolveConnectionString("")
		if err != nil {
			logger.Debug("Keyring lookup failed, using sqlite", "error", err)
		} else if connStr != "" {
			logger.Debug("Using postgres connection string", "source", string(source))
			cfg.Driver = constants.DriverPostgres
			cfg.ConnString = connStr
			return cfg, nil
		}
	}

	cfg.Driver = constants.DriverSQLite
	cfg.Path = ExpandPath(c.Config)
	if cfg.Path == "" {
		cfg.Path = ExpandPath(constants.DefaultConfigPath)
	}
	return cfg, nil
}

// OpenStore opens the store, evolving its schema, and keeps it for the rest
// of the command.
func (c *Context) OpenStore(ctx context.Context, create bool) (*storage.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.StoreConfig(create)
	if err != nil {
		return nil, err
	}
	cfg.Log = func(msg string) {
		fmt.Fprintln(c.Out, strings.TrimSpace(msg))
	}
	s, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.store = s
	return s, nil
}

// Tracker opens the store and builds a tracker configured from the stored
// settings and any overrides.
func (c *Context) Tracker(ctx context.Context) (*tracker.Tracker, error) {
	if c.tracker != nil {
		return c.tracker, nil
	}
	s, err := c.OpenStore(ctx, false)
	if err != nil {
		return nil, err
	}
	settings, err := s.Repo().GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	cfg, err := tracker.ResolveConfig(settings, c.Week, c.TZ)
	if err != nil {
		return nil, err
	}
	c.tracker = tracker.New(s, cfg)
	return c.tracker, nil
}

// Close releases the tracker and store.
func (c *Context) Close() {
	if c.tracker != nil {
		c.tracker.Close()
		c.tracker = nil
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
		c.store = nil
	}
}

// Confirm asks a yes/no question on c.In. Anything but y or yes is no.
func (c *Context) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.Out, "%s [y/N]: ", prompt)
	response, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// ParseDate accepts YYYY-MM-DD, "today", "yesterday" and "tomorrow".
func ParseDate(s string, today time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}
	return utils.ParseDate(s)
}

// FormatAmount prints whole numbers without a fraction.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTarget prints an optional target, "-" when unset.
func FormatTarget(v *float64) string {
	if v == nil {
		return "-"
	}
	return FormatAmount(*v)
}
