package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/goaltrack/internal/cli"
)

type InitCmd struct{}

func (c *InitCmd) Run(app *cli.Context, ctx context.Context) error {
	s, err := app.OpenStore(ctx, true)
	if err != nil {
		return err
	}
	current, _, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	where := s.Path()
	if where == "" {
		where = "postgres"
	}
	fmt.Fprintf(app.Out, "Initialized goaltrack storage at: %s (schema v%d)\n", where, current)
	return nil
}
