package goals

import (
	"fmt"
	"io"
	"time"

	"github.com/julianstephens/goaltrack/internal/cli"
	"github.com/julianstephens/goaltrack/internal/constants"
	"github.com/julianstephens/goaltrack/internal/models"
)

func printGoal(w io.Writer, g models.Goal, today time.Time) {
	fmt.Fprintf(w, "Goal %d: %s\n", g.ID, g.Name)
	fmt.Fprintf(w, "  Unit:          %s\n", g.Unit)
	fmt.Fprintf(w, "  Target year:   %d\n", g.TargetYear)
	fmt.Fprintf(w, "  Created:       %s\n", g.CreatedDate.Format(constants.DateFormat))
	fmt.Fprintf(w, "  Last update:   %s\n", g.LastUpdateDate.Format(constants.DateFormat))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Main:   %s / %s (%.1f%%), %s remaining\n",
		cli.FormatAmount(g.CurrentProgress), cli.FormatAmount(g.MainTarget()),
		g.MainProgressPercentage(), cli.FormatAmount(g.Remaining()))
	if g.YearlyTarget != nil {
		fmt.Fprintf(w, "  Year:   %s / %s (%.1f%%)\n",
			cli.FormatAmount(g.CurrentProgress), cli.FormatTarget(g.YearlyTarget), g.YearlyProgressPercentage())
	}
	fmt.Fprintf(w, "  Today:  %s / %s (%.1f%%)\n",
		cli.FormatAmount(g.TodayProgress), cli.FormatTarget(g.DailyTarget), g.DailyProgressPercentage())
	fmt.Fprintf(w, "  Week:   %s / %s (%.1f%%)\n",
		cli.FormatAmount(g.WeekProgress), cli.FormatTarget(g.WeeklyTarget), g.WeeklyProgressPercentage())
	fmt.Fprintf(w, "  Month:  %s / %s (%.1f%%)\n",
		cli.FormatAmount(g.MonthProgress), cli.FormatTarget(g.MonthlyTarget), g.MonthlyProgressPercentage())
	fmt.Fprintf(w, "  Needed per day: %.2f %s\n", g.DailyRequired(today), g.Unit)
}
