package system

import (
	"errors"
	"fmt"

	"github.com/julianstephens/goaltrack/internal/cli"
	"github.com/julianstephens/goaltrack/internal/constants"
	"github.com/julianstephens/goaltrack/internal/keyring"
	"github.com/julianstephens/goaltrack/internal/storage"
)

// SetConnCmd stores a postgres connection string in the OS keyring.
type SetConnCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string, without a password."`
}

func (c *SetConnCmd) Run(app *cli.Context) error {
	if !storage.IsPostgresConnString(c.ConnectionString) {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}
	if err := storage.ValidateConnString(c.ConnectionString); err != nil {
		return err
	}
	if !keyring.IsAvailable() {
		return fmt.Errorf("%w; set %s instead", keyring.ErrKeyringUnavailable, constants.EnvDBConnection)
	}
	if err := keyring.SetConnectionString(c.ConnectionString); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, "✓ Connection string stored in the OS keyring")
	return nil
}

// ClearConnCmd removes the stored connection string.
type ClearConnCmd struct{}

func (c *ClearConnCmd) Run(app *cli.Context) error {
	err := keyring.DeleteConnectionString()
	if errors.Is(err, keyring.ErrNotFound) {
		fmt.Fprintln(app.Out, "No connection string stored.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, "✓ Connection string removed from the OS keyring")
	return nil
}

// ConnStatusCmd reports which store the current flags select.
type ConnStatusCmd struct{}

func (c *ConnStatusCmd) Run(app *cli.Context) error {
	cfg, err := app.StoreConfig(false)
	if err != nil {
		return err
	}
	if cfg.Driver == constants.DriverPostgres {
		fmt.Fprintln(app.Out, "Store: postgres")
		return nil
	}
	fmt.Fprintf(app.Out, "Store: sqlite at %s\n", cfg.Path)
	return nil
}
