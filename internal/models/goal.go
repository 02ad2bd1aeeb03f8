package models

import (
	"time"

	"github.com/julianstephens/goaltrack/internal/constants"
	"github.com/julianstephens/goaltrack/internal/utils"
)

// Goal is a tracked habit with optional targets per period and one progress
// counter per period. Dates are civil dates (midnight UTC).
type Goal struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"`

	DailyTarget   *float64 `json:"daily_target,omitempty"`
	WeeklyTarget  *float64 `json:"weekly_target,omitempty"`
	MonthlyTarget *float64 `json:"monthly_target,omitempty"`
	YearlyTarget  *float64 `json:"yearly_target,omitempty"`
	TotalTarget   *float64 `json:"total_target,omitempty"` // for goals that are not tied to a year

	CurrentProgress float64 `json:"current_progress"` // cumulative; only a year rollover clears it
	TodayProgress   float64 `json:"today_progress"`
	WeekProgress    float64 `json:"week_progress"`
	MonthProgress   float64 `json:"month_progress"`

	LastUpdateDate time.Time `json:"last_update_date"` // drives rollover detection
	CreatedDate    time.Time `json:"created_date"`
	TargetYear     int       `json:"target_year"`
}

// MainTarget prefers the total target over the yearly one.
func (g Goal) MainTarget() float64 {
	if g.TotalTarget != nil {
		return *g.TotalTarget
	}
	if g.YearlyTarget != nil {
		return *g.YearlyTarget
	}
	return 0
}

func (g Goal) MainProgressPercentage() float64 {
	return percentage(g.CurrentProgress, g.MainTarget())
}

// YearlyProgressPercentage falls back to the main percentage when no yearly
// target is set.
func (g Goal) YearlyProgressPercentage() float64 {
	if g.YearlyTarget != nil && *g.YearlyTarget > 0 {
		return percentage(g.CurrentProgress, *g.YearlyTarget)
	}
	return g.MainProgressPercentage()
}

func (g Goal) DailyProgressPercentage() float64 {
	return optionalPercentage(g.TodayProgress, g.DailyTarget)
}

func (g Goal) WeeklyProgressPercentage() float64 {
	return optionalPercentage(g.WeekProgress, g.WeeklyTarget)
}

func (g Goal) MonthlyProgressPercentage() float64 {
	return optionalPercentage(g.MonthProgress, g.MonthlyTarget)
}

// Remaining is what is left of the main target, never negative.
func (g Goal) Remaining() float64 {
	r := g.MainTarget() - g.CurrentProgress
	if r < 0 {
		return 0
	}
	return r
}

// DailyRequired estimates how much must be done per day to hit the main target.
// Goals with a yearly target count the days left until Dec 31 of TargetYear;
// everything else uses a fixed planning horizon. When no days are left the
// whole remainder is returned.
func (g Goal) DailyRequired(today time.Time) float64 {
	remaining := g.Remaining()

	days := constants.DefaultPlanningHorizonDays
	if g.YearlyTarget != nil {
		endOfYear := utils.Date(g.TargetYear, time.December, 31)
		days = utils.DaysBetween(today, endOfYear)
	}
	if days <= 0 {
		return remaining
	}
	return remaining / float64(days)
}

func (g Goal) HasMainTarget() bool {
	return g.TotalTarget != nil || g.YearlyTarget != nil
}

func (g Goal) HasPeriodicTargets() bool {
	return g.DailyTarget != nil || g.WeeklyTarget != nil || g.MonthlyTarget != nil
}

// GoalInput carries the user-editable fields for creating a goal.
type GoalInput struct {
	Name          string
	Unit          string
	DailyTarget   *float64
	WeeklyTarget  *float64
	MonthlyTarget *float64
	YearlyTarget  *float64
	TotalTarget   *float64
}

// Float returns a pointer to v, for optional targets.
func Float(v float64) *float64 {
	return &v
}

func percentage(progress, target float64) float64 {
	if target > 0 {
		return progress / target * 100
	}
	return 0
}

func optionalPercentage(progress float64, target *float64) float64 {
	if target == nil {
		return 0
	}
	return percentage(progress, *target)
}
