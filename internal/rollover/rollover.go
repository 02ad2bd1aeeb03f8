// Package rollover decides when a goal's period counters must be zeroed as
// calendar time advances, and zeroes them.
package rollover

import (
	"time"

	"github.com/julianstephens/goaltrack/internal/models"
)

// ResetClass is the widest period boundary crossed since the last update.
// Higher values subsume lower ones.
type ResetClass int

const (
	None ResetClass = iota
	Day
	Week
	Month
	Year
)

func (c ResetClass) String() string {
	switch c {
	case None:
		return "none"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return "unknown"
	}
}

// Classify compares the last update date with today. The checks run in a
// fixed order so a year boundary always wins over a week boundary.
func Classify(lastUpdate, today time.Time, conv WeekConvention) ResetClass {
	last, now := civil(lastUpdate), civil(today)

	if last.Equal(now) {
		return None
	}
	if last.Year() != now.Year() {
		return Year
	}
	if last.Month() != now.Month() {
		return Month
	}
	_, lastWeek := conv.Week(last)
	_, thisWeek := conv.Week(now)
	if lastWeek != thisWeek {
		return Week
	}
	return Day
}

// Apply zeroes the counters covered by class and stamps the goal with today.
// None leaves the goal untouched.
func Apply(g *models.Goal, class ResetClass, today time.Time) {
	if class == None {
		return
	}

	today = civil(today)
	switch class {
	case Year:
		g.CurrentProgress = 0
		g.MonthProgress = 0
		g.WeekProgress = 0
		g.TargetYear = today.Year()
	case Month:
		g.MonthProgress = 0
		g.WeekProgress = 0
	case Week:
		g.WeekProgress = 0
	}
	g.TodayProgress = 0
	g.LastUpdateDate = today
}

// Roll classifies and applies in one step, returning the class applied.
func Roll(g *models.Goal, today time.Time, conv WeekConvention) ResetClass {
	class := Classify(g.LastUpdateDate, today, conv)
	Apply(g, class, today)
	return class
}
