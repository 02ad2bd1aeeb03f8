package storage

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/goaltrack/internal/models"
	"github.com/julianstephens/goaltrack/internal/utils"
)

const goalColumns = `id, name, unit, daily_target, weekly_target, monthly_target, yearly_target, total_target,
	current_progress, today_progress, week_progress, month_progress, last_update_date, created_date, target_year`

const planColumns = `id, goal_id, date, planned_amount, actual_amount, is_completed`

// goalRow mirrors the goals table; dates are stored as YYYY-MM-DD text.
type goalRow struct {
	ID              int64           `db:"id"`
	Name            string          `db:"name"`
	Unit            string          `db:"unit"`
	DailyTarget     sql.NullFloat64 `db:"daily_target"`
	WeeklyTarget    sql.NullFloat64 `db:"weekly_target"`
	MonthlyTarget   sql.NullFloat64 `db:"monthly_target"`
	YearlyTarget    sql.NullFloat64 `db:"yearly_target"`
	TotalTarget     sql.NullFloat64 `db:"total_target"`
	CurrentProgress float64         `db:"current_progress"`
	TodayProgress   float64         `db:"today_progress"`
	WeekProgress    float64         `db:"week_progress"`
	MonthProgress   float64         `db:"month_progress"`
	LastUpdateDate  string          `db:"last_update_date"`
	CreatedDate     string          `db:"created_date"`
	TargetYear      int             `db:"target_year"`
}

type planRow struct {
	ID            int64   `db:"id"`
	GoalID        int64   `db:"goal_id"`
	Date          string  `db:"date"`
	PlannedAmount float64 `db:"planned_amount"`
	ActualAmount  float64 `db:"actual_amount"`
	IsCompleted   bool    `db:"is_completed"`
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func optional(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float(v.Float64)
}

func goalToRow(g models.Goal) goalRow {
	return goalRow{
		ID:              g.ID,
		Name:            g.Name,
		Unit:            g.Unit,
		DailyTarget:     nullable(g.DailyTarget),
		WeeklyTarget:    nullable(g.WeeklyTarget),
		MonthlyTarget:   nullable(g.MonthlyTarget),
		YearlyTarget:    nullable(g.YearlyTarget),
		TotalTarget:     nullable(g.TotalTarget),
		CurrentProgress: g.CurrentProgress,
		TodayProgress:   g.TodayProgress,
		WeekProgress:    g.WeekProgress,
		MonthProgress:   g.MonthProgress,
		LastUpdateDate:  utils.FormatDate(g.LastUpdateDate),
		CreatedDate:     utils.FormatDate(g.CreatedDate),
		TargetYear:      g.TargetYear,
	}
}

func (r goalRow) toModel() (models.Goal, error) {
	lastUpdate, err := utils.ParseDate(r.LastUpdateDate)
	if err != nil {
		return models.Goal{}, fmt.Errorf("goal %d last_update_date: %w", r.ID, err)
	}
	created, err := utils.ParseDate(r.CreatedDate)
	if err != nil {
		return models.Goal{}, fmt.Errorf("goal %d created_date: %w", r.ID, err)
	}
	return models.Goal{
		ID:              r.ID,
		Name:            r.Name,
		Unit:            r.Unit,
		DailyTarget:     optional(r.DailyTarget),
		WeeklyTarget:    optional(r.WeeklyTarget),
		MonthlyTarget:   optional(r.MonthlyTarget),
		YearlyTarget:    optional(r.YearlyTarget),
		TotalTarget:     optional(r.TotalTarget),
		CurrentProgress: r.CurrentProgress,
		TodayProgress:   r.TodayProgress,
		WeekProgress:    r.WeekProgress,
		MonthProgress:   r.MonthProgress,
		LastUpdateDate:  lastUpdate,
		CreatedDate:     created,
		TargetYear:      r.TargetYear,
	}, nil
}

func planToRow(p models.DailyPlan) planRow {
	return planRow{
		ID:            p.ID,
		GoalID:        p.GoalID,
		Date:          utils.FormatDate(p.Date),
		PlannedAmount: p.PlannedAmount,
		ActualAmount:  p.ActualAmount,
		IsCompleted:   p.IsCompleted,
	}
}

func (r planRow) toModel() (models.DailyPlan, error) {
	date, err := utils.ParseDate(r.Date)
	if err != nil {
		return models.DailyPlan{}, fmt.Errorf("plan %d date: %w", r.ID, err)
	}
	return models.DailyPlan{
		ID:            r.ID,
		GoalID:        r.GoalID,
		Date:          date,
		PlannedAmount: r.PlannedAmount,
		ActualAmount:  r.ActualAmount,
		IsCompleted:   r.IsCompleted,
	}, nil
}

func goalsFromRows(rows []goalRow) ([]models.Goal, error) {
	goals := make([]models.Goal, 0, len(rows))
	for _, r := range rows {
		g, err := r.toModel()
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func plansFromRows(rows []planRow) ([]models.DailyPlan, error) {
	plans := make([]models.DailyPlan, 0, len(rows))
	for _, r := range rows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}
