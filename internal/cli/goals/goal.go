// Package goals implements the goal and progress commands.
package goals

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/julianstephens/goaltrack/internal/cli"
	apperrors "github.com/julianstephens/goaltrack/internal/errors"
	"github.com/julianstephens/goaltrack/internal/models"
)

// runForm is swapped in tests; the real form needs a terminal.
var runForm = func(fm *goalForm) error {
	return newGoalForm(fm).Run()
}

type GoalAddCmd struct {
	Name    string   `arg:"" optional:"" help:"Goal name. Omit to fill in a form."`
	Unit    string   `short:"u" help:"Unit of progress (km, pages, ...)."`
	Daily   *float64 `help:"Daily target."`
	Weekly  *float64 `help:"Weekly target."`
	Monthly *float64 `help:"Monthly target."`
	Yearly  *float64 `short:"y" help:"Yearly target."`
	Total   *float64 `short:"t" help:"Total target, not tied to a year. Takes precedence over --yearly."`
}

func (c *GoalAddCmd) Run(app *cli.Context, ctx context.Context) error {
	in := models.GoalInput{
		Name:          c.Name,
		Unit:          c.Unit,
		DailyTarget:   c.Daily,
		WeeklyTarget:  c.Weekly,
		MonthlyTarget: c.Monthly,
		YearlyTarget:  c.Yearly,
		TotalTarget:   c.Total,
	}
	if strings.TrimSpace(c.Name) == "" {
		fm := &goalForm{Unit: c.Unit}
		if err := runForm(fm); err != nil {
			return fmt.Errorf("goal form cancelled: %w", err)
		}
		var err error
		if in, err = fm.input(); err != nil {
			return err
		}
	}

	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}
	id, err := tr.CreateGoal(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Added goal: %s (ID: %d)\n", strings.TrimSpace(in.Name), id)
	return nil
}

type GoalListCmd struct {
	Year int `help:"Only goals targeting this year."`
}

func (c *GoalListCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}
	var goals []models.Goal
	if c.Year != 0 {
		goals, err = tr.ListGoalsByYear(ctx, c.Year)
	} else {
		goals, err = tr.ListGoals(ctx)
	}
	if err != nil {
		return err
	}

	if len(goals) == 0 {
		fmt.Fprintln(app.Out, "No goals found.")
		return nil
	}
	for _, g := range goals {
		fmt.Fprintf(app.Out, "[%d] %s: %s / %s %s (%.1f%%), today %s\n",
			g.ID, g.Name,
			cli.FormatAmount(g.CurrentProgress), cli.FormatAmount(g.MainTarget()), g.Unit,
			g.MainProgressPercentage(), cli.FormatAmount(g.TodayProgress))
	}
	return nil
}

type GoalShowCmd struct {
	ID int64 `arg:"" help:"Goal ID."`
}

func (c *GoalShowCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}
	g, err := tr.GetGoal(ctx, c.ID)
	if err != nil {
		return err
	}
	printGoal(app.Out, g, tr.Today())
	return nil
}

type GoalEditCmd struct {
	ID      int64    `arg:"" help:"Goal ID."`
	Name    *string  `help:"New name."`
	Unit    *string  `help:"New unit."`
	Daily   *float64 `help:"Daily target."`
	Weekly  *float64 `help:"Weekly target."`
	Monthly *float64 `help:"Monthly target."`
	Yearly  *float64 `help:"Yearly target."`
	Total   *float64 `help:"Total target."`
	Clear   []string `help:"Targets to unset (daily,weekly,monthly,yearly,total)."`
}

func (c *GoalEditCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}
	g, err := tr.GetGoal(ctx, c.ID)
	if err != nil {
		return err
	}

	if c.Name != nil {
		g.Name = strings.TrimSpace(*c.Name)
	}
	if c.Unit != nil {
		g.Unit = strings.TrimSpace(*c.Unit)
	}
	targets := map[string]**float64{
		"daily":   &g.DailyTarget,
		"weekly":  &g.WeeklyTarget,
		"monthly": &g.MonthlyTarget,
		"yearly":  &g.YearlyTarget,
		"total":   &g.TotalTarget,
	}
	for _, name := range c.Clear {
		target, ok := targets[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return apperrors.Invalid("clear", "unknown target %q", name)
		}
		*target = nil
	}
	for name, v := range map[string]*float64{
		"daily": c.Daily, "weekly": c.Weekly, "monthly": c.Monthly, "yearly": c.Yearly, "total": c.Total,
	} {
		if v != nil {
			*targets[name] = v
		}
	}

	if err := tr.UpdateGoal(ctx, g); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Updated goal %d\n", g.ID)
	return nil
}

type GoalDeleteCmd struct {
	ID  int64 `arg:"" help:"Goal ID."`
	Yes bool  `help:"Do not ask for confirmation."`
}

func (c *GoalDeleteCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}
	g, err := tr.GetGoal(ctx, c.ID)
	if err != nil {
		return err
	}
	if !c.Yes {
		ok, err := app.Confirm(fmt.Sprintf("Delete goal %q and all of its plans?", g.Name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(app.Out, "Delete cancelled.")
			return nil
		}
	}
	if err := tr.DeleteGoal(ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted goal: %s\n", g.Name)
	return nil
}

type ProgressAddCmd struct {
	ID     int64   `arg:"" help:"Goal ID."`
	Amount float64 `arg:"" help:"Amount to add."`
}

func (c *ProgressAddCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}
	g, err := tr.AddProgress(ctx, c.ID, c.Amount)
	if err != nil {
		return err
	}
	printProgress(app.Out, g)
	return nil
}

type ProgressSubCmd struct {
	ID     int64   `arg:"" help:"Goal ID."`
	Amount float64 `arg:"" help:"Amount to subtract. Counters never go below zero."`
}

func (c *ProgressSubCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}
	g, err := tr.SubtractProgress(ctx, c.ID, c.Amount)
	if err != nil {
		return err
	}
	printProgress(app.Out, g)
	return nil
}

func printProgress(w io.Writer, g models.Goal) {
	fmt.Fprintf(w, "%s: %s / %s %s (%.1f%%)\n", g.Name,
		cli.FormatAmount(g.CurrentProgress), cli.FormatAmount(g.MainTarget()), g.Unit, g.MainProgressPercentage())
}
