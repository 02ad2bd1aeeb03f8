package tracker

import (
	"context"
	"time"

	apperrors "github.com/julianstephens/goaltrack/internal/errors"
	"github.com/julianstephens/goaltrack/internal/ledger"
	"github.com/julianstephens/goaltrack/internal/models"
	"github.com/julianstephens/goaltrack/internal/storage"
	"github.com/julianstephens/goaltrack/internal/utils"
)

func (t *Tracker) GetPlan(ctx context.Context, id int64) (models.DailyPlan, error) {
	return t.store.Repo().GetPlan(ctx, id)
}

func (t *Tracker) ListPlansForDate(ctx context.Context, date time.Time) ([]models.DailyPlan, error) {
	return t.store.Repo().ListPlansForDate(ctx, utils.DateOf(date))
}

func (t *Tracker) SubscribePlansForDate(ctx context.Context, date time.Time) (*Subscription[[]models.DailyPlan], error) {
	return subscribe(ctx, t.subs, "plans-for-date", func(ctx context.Context) ([]models.DailyPlan, error) {
		return t.ListPlansForDate(ctx, date)
	})
}

func (t *Tracker) ListPlansForGoal(ctx context.Context, goalID int64) ([]models.DailyPlan, error) {
	return t.store.Repo().ListPlansForGoal(ctx, goalID)
}

func (t *Tracker) SubscribePlansForGoal(ctx context.Context, goalID int64) (*Subscription[[]models.DailyPlan], error) {
	return subscribe(ctx, t.subs, "plans-for-goal", func(ctx context.Context) ([]models.DailyPlan, error) {
		return t.ListPlansForGoal(ctx, goalID)
	})
}

// ListPlansBetween returns the plans dated from start to end inclusive.
func (t *Tracker) ListPlansBetween(ctx context.Context, start, end time.Time) ([]models.DailyPlan, error) {
	start, end = utils.DateOf(start), utils.DateOf(end)
	if end.Before(start) {
		return nil, apperrors.Invalid("date range", "end %s is before start %s", utils.FormatDate(end), utils.FormatDate(start))
	}
	return t.store.Repo().ListPlansBetween(ctx, start, end)
}

// UpsertPlan sets the planned amount for a goal on a date and returns the
// plan id.
func (t *Tracker) UpsertPlan(ctx context.Context, goalID int64, date time.Time, planned float64) (int64, error) {
	var id int64
	err := t.write(ctx, "upsert plan", func(l *ledger.Ledger, _ *storage.Repo) error {
		var err error
		id, err = l.UpsertPlan(ctx, goalID, date, planned)
		return err
	})
	return id, err
}

// CompletePlan marks a plan done with actual and adds actual to its goal.
// Either both changes are stored or neither is.
func (t *Tracker) CompletePlan(ctx context.Context, planID int64, actual float64) (models.DailyPlan, models.Goal, error) {
	var (
		plan models.DailyPlan
		goal models.Goal
	)
	err := t.write(ctx, "complete plan", func(l *ledger.Ledger, _ *storage.Repo) error {
		var err error
		plan, goal, err = l.CompletePlan(ctx, planID, actual)
		return err
	})
	return plan, goal, err
}

func (t *Tracker) DeletePlan(ctx context.Context, id int64) error {
	return t.write(ctx, "delete plan", func(_ *ledger.Ledger, r *storage.Repo) error {
		return r.DeletePlan(ctx, id)
	})
}

// Audit reads every goal and plan for a consistency check.
func (t *Tracker) Audit(ctx context.Context) ([]models.Goal, []models.DailyPlan, error) {
	repo := t.store.Repo()
	goals, err := repo.ListGoals(ctx)
	if err != nil {
		return nil, nil, err
	}
	plans, err := repo.ListAllPlans(ctx)
	if err != nil {
		return nil, nil, err
	}
	return goals, plans, nil
}
