package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/julianstephens/goaltrack/internal/constants"
	apperrors "github.com/julianstephens/goaltrack/internal/errors"
	"github.com/julianstephens/goaltrack/internal/models"
	"github.com/julianstephens/goaltrack/internal/utils"
)

// Repo runs goal, plan and settings queries against either the database or
// one open transaction. Queries are written with ? placeholders and rebound
// for the driver.
type Repo struct {
	q sqlx.ExtContext
}

func (r *Repo) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, r.q, dest, r.q.Rebind(query), args...)
}

func (r *Repo) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, r.q, dest, r.q.Rebind(query), args...)
}

// execOne runs a statement that must touch exactly one row.
func (r *Repo) execOne(ctx context.Context, entity string, id int64, query string, args ...interface{}) error {
	result, err := r.q.ExecContext(ctx, r.q.Rebind(query), args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound(entity, id)
	}
	return nil
}

// Goals

func (r *Repo) GetGoal(ctx context.Context, id int64) (models.Goal, error) {
	var row goalRow
	err := r.get(ctx, &row, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Goal{}, apperrors.NotFound("goal", id)
	}
	if err != nil {
		return models.Goal{}, fmt.Errorf("get goal %d: %w", id, err)
	}
	return row.toModel()
}

// ListGoals returns every goal, newest first.
func (r *Repo) ListGoals(ctx context.Context) ([]models.Goal, error) {
	var rows []goalRow
	if err := r.selectAll(ctx, &rows, `SELECT `+goalColumns+` FROM goals ORDER BY created_date DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goalsFromRows(rows)
}

// ListGoalsByYear returns the goals whose target year is year, newest first.
func (r *Repo) ListGoalsByYear(ctx context.Context, year int) ([]models.Goal, error) {
	var rows []goalRow
	err := r.selectAll(ctx, &rows,
		`SELECT `+goalColumns+` FROM goals WHERE target_year = ? ORDER BY created_date DESC, id DESC`, year)
	if err != nil {
		return nil, fmt.Errorf("list goals for %d: %w", year, err)
	}
	return goalsFromRows(rows)
}

// InsertGoal stores g and returns its new id. g.ID is ignored.
func (r *Repo) InsertGoal(ctx context.Context, g models.Goal) (int64, error) {
	row := goalToRow(g)
	var id int64
	err := r.get(ctx, &id, `INSERT INTO goals (
			name, unit, daily_target, weekly_target, monthly_target, yearly_target, total_target,
			current_progress, today_progress, week_progress, month_progress,
			last_update_date, created_date, target_year
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		row.Name, row.Unit, row.DailyTarget, row.WeeklyTarget, row.MonthlyTarget, row.YearlyTarget, row.TotalTarget,
		row.CurrentProgress, row.TodayProgress, row.WeekProgress, row.MonthProgress,
		row.LastUpdateDate, row.CreatedDate, row.TargetYear,
	)
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	return id, nil
}

// UpdateGoal overwrites every column of the goal with g.ID. createdDate is
// immutable and left as stored.
func (r *Repo) UpdateGoal(ctx context.Context, g models.Goal) error {
	row := goalToRow(g)
	return r.execOne(ctx, "goal", g.ID, `UPDATE goals SET
			name = ?, unit = ?, daily_target = ?, weekly_target = ?, monthly_target = ?,
			yearly_target = ?, total_target = ?, current_progress = ?, today_progress = ?,
			week_progress = ?, month_progress = ?, last_update_date = ?, target_year = ?
		WHERE id = ?`,
		row.Name, row.Unit, row.DailyTarget, row.WeeklyTarget, row.MonthlyTarget,
		row.YearlyTarget, row.TotalTarget, row.CurrentProgress, row.TodayProgress,
		row.WeekProgress, row.MonthProgress, row.LastUpdateDate, row.TargetYear,
		row.ID,
	)
}

// DeleteGoal removes a goal; its plans go with it.
func (r *Repo) DeleteGoal(ctx context.Context, id int64) error {
	return r.execOne(ctx, "goal", id, `DELETE FROM goals WHERE id = ?`, id)
}

// Plans

func (r *Repo) GetPlan(ctx context.Context, id int64) (models.DailyPlan, error) {
	var row planRow
	err := r.get(ctx, &row, `SELECT `+planColumns+` FROM daily_plans WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyPlan{}, apperrors.NotFound("plan", id)
	}
	if err != nil {
		return models.DailyPlan{}, fmt.Errorf("get plan %d: %w", id, err)
	}
	return row.toModel()
}

// FindPlan returns the plan for goalID on date. When duplicates exist the
// lowest id wins.
func (r *Repo) FindPlan(ctx context.Context, goalID int64, date time.Time) (models.DailyPlan, bool, error) {
	var row planRow
	err := r.get(ctx, &row,
		`SELECT `+planColumns+` FROM daily_plans WHERE goal_id = ? AND date = ? ORDER BY id LIMIT 1`,
		goalID, utils.FormatDate(date))
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyPlan{}, false, nil
	}
	if err != nil {
		return models.DailyPlan{}, false, fmt.Errorf("find plan: %w", err)
	}
	p, err := row.toModel()
	return p, err == nil, err
}

// InsertPlan stores p and returns its new id. p.ID is ignored.
func (r *Repo) InsertPlan(ctx context.Context, p models.DailyPlan) (int64, error) {
	row := planToRow(p)
	var id int64
	err := r.get(ctx, &id,
		`INSERT INTO daily_plans (goal_id, date, planned_amount, actual_amount, is_completed)
		VALUES (?, ?, ?, ?, ?) RETURNING id`,
		row.GoalID, row.Date, row.PlannedAmount, row.ActualAmount, row.IsCompleted)
	if err != nil {
		return 0, fmt.Errorf("insert plan: %w", err)
	}
	return id, nil
}

func (r *Repo) UpdatePlan(ctx context.Context, p models.DailyPlan) error {
	row := planToRow(p)
	return r.execOne(ctx, "plan", p.ID,
		`UPDATE daily_plans SET goal_id = ?, date = ?, planned_amount = ?, actual_amount = ?, is_completed = ?
		WHERE id = ?`,
		row.GoalID, row.Date, row.PlannedAmount, row.ActualAmount, row.IsCompleted, row.ID)
}

func (r *Repo) DeletePlan(ctx context.Context, id int64) error {
	return r.execOne(ctx, "plan", id, `DELETE FROM daily_plans WHERE id = ?`, id)
}

func (r *Repo) listPlans(ctx context.Context, where string, args ...interface{}) ([]models.DailyPlan, error) {
	var rows []planRow
	query := `SELECT ` + planColumns + ` FROM daily_plans ` + where + ` ORDER BY date, goal_id, id`
	if err := r.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plansFromRows(rows)
}

func (r *Repo) ListPlansForDate(ctx context.Context, date time.Time) ([]models.DailyPlan, error) {
	return r.listPlans(ctx, `WHERE date = ?`, utils.FormatDate(date))
}

func (r *Repo) ListPlansForGoal(ctx context.Context, goalID int64) ([]models.DailyPlan, error) {
	return r.listPlans(ctx, `WHERE goal_id = ?`, goalID)
}

// ListPlansBetween returns plans dated start through end inclusive.
func (r *Repo) ListPlansBetween(ctx context.Context, start, end time.Time) ([]models.DailyPlan, error) {
	return r.listPlans(ctx, `WHERE date >= ? AND date <= ?`, utils.FormatDate(start), utils.FormatDate(end))
}

func (r *Repo) ListAllPlans(ctx context.Context) ([]models.DailyPlan, error) {
	return r.listPlans(ctx, ``)
}

// Settings

// GetSettings returns the stored settings with defaults for missing keys.
func (r *Repo) GetSettings(ctx context.Context) (models.Settings, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := r.selectAll(ctx, &rows, `SELECT key, value FROM settings`); err != nil {
		return models.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	settings := models.Settings{
		WeekConvention: constants.DefaultWeekConvention,
		Timezone:       constants.DefaultTimezone,
	}
	for _, kv := range rows {
		switch kv.Key {
		case constants.SettingWeekConvention:
			settings.WeekConvention = kv.Value
		case constants.SettingTimezone:
			settings.Timezone = kv.Value
		}
	}
	return settings, nil
}

func (r *Repo) SaveSettings(ctx context.Context, settings models.Settings) error {
	for _, kv := range [][2]string{
		{constants.SettingWeekConvention, settings.WeekConvention},
		{constants.SettingTimezone, settings.Timezone},
	} {
		_, err := r.q.ExecContext(ctx, r.q.Rebind(
			`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
			kv[0], kv[1])
		if err != nil {
			return fmt.Errorf("save setting %s: %w", kv[0], err)
		}
	}
	return nil
}
