package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/julianstephens/goaltrack/internal/cli"
	"github.com/julianstephens/goaltrack/internal/cli/backups"
	"github.com/julianstephens/goaltrack/internal/cli/goals"
	"github.com/julianstephens/goaltrack/internal/cli/plans"
	"github.com/julianstephens/goaltrack/internal/cli/settings"
	"github.com/julianstephens/goaltrack/internal/cli/system"
	"github.com/julianstephens/goaltrack/internal/constants"
	"github.com/julianstephens/goaltrack/internal/errors"
	"github.com/julianstephens/goaltrack/internal/logger"
)

type CLI struct {
	cli.Globals

	Version kong.VersionFlag `help:"Print version and exit."`

	Init    system.InitCmd    `cmd:"" help:"Initialize goaltrack storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Evolve the database schema to the latest version."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Watch   system.WatchCmd   `cmd:"" help:"Live view of goal progress." default:"1"`
	Goal    struct {
		Add    goals.GoalAddCmd    `cmd:"" help:"Add a new goal."`
		List   goals.GoalListCmd   `cmd:"" help:"List goals."`
		Show   goals.GoalShowCmd   `cmd:"" help:"Show a goal with its derived values."`
		Edit   goals.GoalEditCmd   `cmd:"" help:"Edit an existing goal."`
		Delete goals.GoalDeleteCmd `cmd:"" help:"Delete a goal and its plans."`
	} `cmd:"" help:"Manage goals."`
	Progress struct {
		Add goals.ProgressAddCmd `cmd:"" help:"Record progress on a goal."`
		Sub goals.ProgressSubCmd `cmd:"" help:"Take back progress from a goal."`
	} `cmd:"" help:"Record progress."`
	Plan struct {
		Set    plans.PlanSetCmd    `cmd:"" help:"Plan an amount for a goal on a day."`
		List   plans.PlanListCmd   `cmd:"" help:"List daily plans."`
		Done   plans.PlanDoneCmd   `cmd:"" help:"Complete a plan and record its progress."`
		Delete plans.PlanDeleteCmd `cmd:"" help:"Delete a plan."`
	} `cmd:"" help:"Manage daily plans."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	DB struct {
		SetConn   system.SetConnCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		ClearConn system.ClearConnCmd  `cmd:"" help:"Remove the stored connection string."`
		Status    system.ConnStatusCmd `cmd:"" help:"Show where the connection string comes from."`
	} `cmd:"" name:"db" help:"Manage the database connection."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage application settings."`
}

// run parses args and executes the selected command against out and in.
func run(ctx context.Context, args []string, out io.Writer, in io.Reader) error {
	var c CLI
	parser, err := kong.New(&c,
		kong.Name(constants.AppName),
		kong.Description("Track yearly goals with daily, weekly and monthly progress."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigPath,
		},
		kong.Writers(out, out),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	app := cli.NewContext(c.Globals)
	app.Out = out
	app.In = in
	defer app.Close()

	if err := logger.Init(logger.Config{Debug: c.Debug, ConfigDir: app.ConfigDir()}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer logger.Close()
	logger.Debug("Running command", "command", kctx.Command())

	return kctx.Run(app)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stdin)
	stop()
	errors.Fatal(err)
}
