// Package backups implements the backup commands for sqlite stores.
package backups

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/goaltrack/internal/backup"
	"github.com/julianstephens/goaltrack/internal/cli"
	"github.com/julianstephens/goaltrack/internal/constants"
	"github.com/julianstephens/goaltrack/internal/storage"
)

var errNotSQLite = errors.New("backups are only available for sqlite stores")

func manager(app *cli.Context) (*backup.Manager, error) {
	cfg, err := app.StoreConfig(false)
	if err != nil {
		return nil, err
	}
	if cfg.Driver != constants.DriverSQLite {
		return nil, errNotSQLite
	}
	return backup.NewManager(cfg.Path), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(app *cli.Context, ctx context.Context) error {
	// Opening first refuses to snapshot a store this binary cannot read.
	if _, err := app.OpenStore(ctx, false); err != nil {
		return err
	}
	mgr, err := manager(app)
	if err != nil {
		return err
	}
	path, err := mgr.Create(ctx, "manual")
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Backup created: %s\n", filepath.Base(path))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(app *cli.Context) error {
	mgr, err := manager(app)
	if err != nil {
		return err
	}
	list, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(list) == 0 {
		fmt.Fprintln(app.Out, "No backups found.")
		fmt.Fprintf(app.Out, "Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	fmt.Fprintf(app.Out, "Available backups (%d total, keeping most recent %d):\n\n", len(list), constants.MaxBackups)
	for _, b := range list {
		reason := b.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(app.Out, "  %s  %-12s %s  (%.1f KB)\n",
			b.Timestamp.Format("2006-01-02 15:04:05"), reason, filepath.Base(b.Path), float64(b.Size)/1024.0)
	}
	fmt.Fprintf(app.Out, "\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
	Yes        bool   `help:"Do not ask for confirmation."`
}

func (c *BackupRestoreCmd) Run(app *cli.Context, ctx context.Context) error {
	mgr, err := manager(app)
	if err != nil {
		return err
	}

	path := c.BackupFile
	if !filepath.IsAbs(path) {
		if candidate := filepath.Join(mgr.Dir(), path); fileExists(candidate) {
			path = candidate
		}
	}
	if !fileExists(path) {
		return fmt.Errorf("backup file not found: %s", path)
	}

	if !c.Yes {
		fmt.Fprintln(app.Out, "⚠️  WARNING: This will replace your current database with the backup.")
		fmt.Fprintln(app.Out, "A backup of your current database will be created before restoring.")
		fmt.Fprintf(app.Out, "\nRestore from: %s\n", filepath.Base(path))
		ok, err := app.Confirm("Continue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(app.Out, "Restore cancelled.")
			return nil
		}
	}

	app.Close()
	previous, err := mgr.Restore(ctx, path)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	if previous != "" {
		fmt.Fprintf(app.Out, "Previous database saved as %s\n", filepath.Base(previous))
	}

	// The restored copy may be older than this binary's schema.
	cfg, err := app.StoreConfig(false)
	if err != nil {
		return err
	}
	if current, target, steps, err := storage.Inspect(ctx, cfg); err == nil && len(steps) > 0 {
		fmt.Fprintf(app.Out, "Restored schema is v%d; it will be evolved to v%d on next use.\n", current, target)
	}
	fmt.Fprintln(app.Out, "✓ Database restored successfully!")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
