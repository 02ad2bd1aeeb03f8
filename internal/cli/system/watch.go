package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/goaltrack/internal/cli"
	"github.com/julianstephens/goaltrack/internal/models"
	"github.com/julianstephens/goaltrack/internal/tracker"
	"github.com/julianstephens/goaltrack/internal/tui"
)

type WatchCmd struct {
	Step float64 `help:"Amount the + and - keys add or subtract." default:"1"`
	Year int     `help:"Only show goals targeting this year."`
}

func (c *WatchCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sub *tracker.Subscription[[]models.Goal]
	if c.Year != 0 {
		sub, err = tr.SubscribeGoalsByYear(ctx, c.Year)
	} else {
		sub, err = tr.SubscribeGoals(ctx)
	}
	if err != nil {
		return err
	}
	defer sub.Close()

	p := tea.NewProgram(tui.NewModel(ctx, tr, sub.Updates(), c.Step), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch view failed: %w", err)
	}
	return nil
}
