package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/goaltrack/internal/cli"
	"github.com/julianstephens/goaltrack/internal/storage"
)

type MigrateCmd struct {
	DryRun bool `help:"Show the evolution steps without applying them."`
}

func (c *MigrateCmd) Run(app *cli.Context, ctx context.Context) error {
	cfg, err := app.StoreConfig(false)
	if err != nil {
		return err
	}
	current, target, steps, err := storage.Inspect(ctx, cfg)
	if err != nil {
		return err
	}

	if len(steps) == 0 {
		fmt.Fprintf(app.Out, "Schema is up to date (v%d).\n", current)
		return nil
	}

	fmt.Fprintf(app.Out, "Schema v%d -> v%d:\n", current, target)
	for _, step := range steps {
		fmt.Fprintf(app.Out, "  %s\n", step)
	}
	if c.DryRun {
		fmt.Fprintln(app.Out, "Dry run: nothing applied.")
		return nil
	}

	// Opening the store applies the steps.
	s, err := app.OpenStore(ctx, false)
	if err != nil {
		return err
	}
	now, _, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "✓ Schema evolved to v%d\n", now)
	return nil
}
