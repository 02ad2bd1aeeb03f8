// Package plans implements the daily plan commands.
package plans

import (
	"context"
	"fmt"
	"io"

	"github.com/julianstephens/goaltrack/internal/cli"
	"github.com/julianstephens/goaltrack/internal/constants"
	"github.com/julianstephens/goaltrack/internal/models"
)

type PlanSetCmd struct {
	GoalID int64   `arg:"" help:"Goal ID."`
	Amount float64 `arg:"" help:"Planned amount."`
	Date   string  `short:"d" help:"Date (YYYY-MM-DD, today, tomorrow, yesterday)." default:"today"`
}

func (c *PlanSetCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date, tr.Today())
	if err != nil {
		return err
	}
	id, err := tr.UpsertPlan(ctx, c.GoalID, date, c.Amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Planned %s for goal %d on %s (plan %d)\n",
		cli.FormatAmount(c.Amount), c.GoalID, date.Format(constants.DateFormat), id)
	return nil
}

type PlanListCmd struct {
	Date string `short:"d" help:"Date to list (YYYY-MM-DD, today, tomorrow, yesterday)." default:"today"`
	Goal int64  `short:"g" help:"List every plan of this goal instead."`
	From string `help:"Start of a date range, inclusive."`
	To   string `help:"End of a date range, inclusive."`
}

func (c *PlanListCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}

	var plans []models.DailyPlan
	switch {
	case c.Goal != 0:
		plans, err = tr.ListPlansForGoal(ctx, c.Goal)
	case c.From != "" || c.To != "":
		from, ferr := cli.ParseDate(c.From, tr.Today())
		if ferr != nil {
			return ferr
		}
		to, terr := cli.ParseDate(c.To, tr.Today())
		if terr != nil {
			return terr
		}
		plans, err = tr.ListPlansBetween(ctx, from, to)
	default:
		date, derr := cli.ParseDate(c.Date, tr.Today())
		if derr != nil {
			return derr
		}
		plans, err = tr.ListPlansForDate(ctx, date)
	}
	if err != nil {
		return err
	}

	printPlans(app.Out, plans)
	return nil
}

func printPlans(w io.Writer, plans []models.DailyPlan) {
	if len(plans) == 0 {
		fmt.Fprintln(w, "No plans found.")
		return
	}
	for _, p := range plans {
		status := " "
		if p.IsCompleted {
			status = "✓"
		}
		fmt.Fprintf(w, "[%s] %d  %s  goal %d  planned %s  actual %s (%.0f%%)\n",
			status, p.ID, p.Date.Format(constants.DateFormat), p.GoalID,
			cli.FormatAmount(p.PlannedAmount), cli.FormatAmount(p.ActualAmount), p.CompletionRate())
	}
}

type PlanDoneCmd struct {
	ID     int64    `arg:"" help:"Plan ID."`
	Actual *float64 `short:"a" help:"Amount actually done. Defaults to the planned amount."`
}

func (c *PlanDoneCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}

	var actual float64
	if c.Actual != nil {
		actual = *c.Actual
	} else {
		plan, err := tr.GetPlan(ctx, c.ID)
		if err != nil {
			return err
		}
		actual = plan.PlannedAmount
	}

	plan, goal, err := tr.CompletePlan(ctx, c.ID, actual)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "✓ Completed plan %d with %s %s (%.0f%% of plan)\n",
		plan.ID, cli.FormatAmount(plan.ActualAmount), goal.Unit, plan.CompletionRate())
	fmt.Fprintf(app.Out, "%s: %s / %s %s (%.1f%%)\n", goal.Name,
		cli.FormatAmount(goal.CurrentProgress), cli.FormatAmount(goal.MainTarget()), goal.Unit, goal.MainProgressPercentage())
	return nil
}

type PlanDeleteCmd struct {
	ID int64 `arg:"" help:"Plan ID."`
}

func (c *PlanDeleteCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}
	if err := tr.DeletePlan(ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted plan %d\n", c.ID)
	return nil
}
