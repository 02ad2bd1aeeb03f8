// Package ledger applies progress mutations to goals. Each mutation first
// brings the goal's period counters up to date with the evaluation date, then
// applies its delta, then writes the goal once.
//
// A Ledger is bound to one repository, normally a transaction, and one
// evaluation date. It does not commit; the caller owns the transaction.
package ledger

import (
	"context"
	"math"
	"time"

	"github.com/julianstephens/goaltrack/internal/logger"
	"github.com/julianstephens/goaltrack/internal/models"
	"github.com/julianstephens/goaltrack/internal/rollover"
	"github.com/julianstephens/goaltrack/internal/utils"
	"github.com/julianstephens/goaltrack/internal/validation"
)

// Repository is the storage the ledger reads and writes.
type Repository interface {
	GetGoal(ctx context.Context, id int64) (models.Goal, error)
	UpdateGoal(ctx context.Context, g models.Goal) error
	GetPlan(ctx context.Context, id int64) (models.DailyPlan, error)
	FindPlan(ctx context.Context, goalID int64, date time.Time) (models.DailyPlan, bool, error)
	InsertPlan(ctx context.Context, p models.DailyPlan) (int64, error)
	UpdatePlan(ctx context.Context, p models.DailyPlan) error
}

type Ledger struct {
	repo  Repository
	conv  rollover.WeekConvention
	today time.Time
}

// New binds a ledger to repo, evaluating rollover with conv as of today.
func New(repo Repository, conv rollover.WeekConvention, today time.Time) *Ledger {
	return &Ledger{repo: repo, conv: conv, today: utils.DateOf(today)}
}

// roll applies any pending period reset to g in memory. A goal stamped after
// today is left alone; its counters belong to a day that has not come yet.
func (l *Ledger) roll(g *models.Goal) rollover.ResetClass {
	if g.LastUpdateDate.After(l.today) {
		logger.FutureStamp(g.ID, g.LastUpdateDate, l.today)
		return rollover.None
	}
	last := g.LastUpdateDate
	class := rollover.Roll(g, l.today, l.conv)
	if class != rollover.None {
		logger.Rollover(g.ID, class.String(), last, l.today)
	}
	return class
}

// stamp sets the last update date without moving it backwards.
func (l *Ledger) stamp(g *models.Goal) {
	if !g.LastUpdateDate.After(l.today) {
		g.LastUpdateDate = l.today
	}
}

// Current returns a goal with any pending rollover applied and persisted.
func (l *Ledger) Current(ctx context.Context, id int64) (models.Goal, error) {
	g, err := l.repo.GetGoal(ctx, id)
	if err != nil {
		return models.Goal{}, err
	}
	if l.roll(&g) != rollover.None {
		if err := l.repo.UpdateGoal(ctx, g); err != nil {
			return models.Goal{}, err
		}
	}
	return g, nil
}

// RollAll applies pending rollover to each goal, persisting the ones that
// changed, and returns the updated list in the same order.
func (l *Ledger) RollAll(ctx context.Context, goals []models.Goal) ([]models.Goal, int, error) {
	out := make([]models.Goal, len(goals))
	changed := 0
	for i, g := range goals {
		if l.roll(&g) != rollover.None {
			if err := l.repo.UpdateGoal(ctx, g); err != nil {
				return nil, changed, err
			}
			changed++
		}
		out[i] = g
	}
	return out, changed, nil
}

// AddProgress adds amount to every counter of the goal. A negative amount is
// a subtraction and clamps at zero like SubtractProgress.
func (l *Ledger) AddProgress(ctx context.Context, goalID int64, amount float64) (models.Goal, error) {
	if err := validation.ValidateAmount("amount", amount); err != nil {
		return models.Goal{}, err
	}
	if amount < 0 {
		return l.SubtractProgress(ctx, goalID, -amount)
	}

	g, err := l.repo.GetGoal(ctx, goalID)
	if err != nil {
		return models.Goal{}, err
	}
	l.roll(&g)

	g.CurrentProgress += amount
	g.TodayProgress += amount
	g.WeekProgress += amount
	g.MonthProgress += amount
	l.stamp(&g)

	if err := l.repo.UpdateGoal(ctx, g); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

// SubtractProgress removes amount from every counter, never taking one
// below zero.
func (l *Ledger) SubtractProgress(ctx context.Context, goalID int64, amount float64) (models.Goal, error) {
	if err := validation.ValidateNonNegative("amount", amount); err != nil {
		return models.Goal{}, err
	}

	g, err := l.repo.GetGoal(ctx, goalID)
	if err != nil {
		return models.Goal{}, err
	}
	l.roll(&g)

	g.CurrentProgress = clampSub(g.CurrentProgress, amount)
	g.TodayProgress = clampSub(g.TodayProgress, amount)
	g.WeekProgress = clampSub(g.WeekProgress, amount)
	g.MonthProgress = clampSub(g.MonthProgress, amount)
	l.stamp(&g)

	if err := l.repo.UpdateGoal(ctx, g); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

func clampSub(v, amount float64) float64 {
	return math.Max(0, v-amount)
}

// CompletePlan records actual against the plan, marks it completed and adds
// actual to the owning goal. Both writes go through the same repository so a
// transactional repository makes them atomic.
func (l *Ledger) CompletePlan(ctx context.Context, planID int64, actual float64) (models.DailyPlan, models.Goal, error) {
	if err := validation.ValidateNonNegative("actual amount", actual); err != nil {
		return models.DailyPlan{}, models.Goal{}, err
	}

	plan, err := l.repo.GetPlan(ctx, planID)
	if err != nil {
		return models.DailyPlan{}, models.Goal{}, err
	}
	plan.ActualAmount = actual
	plan.IsCompleted = true
	if err := l.repo.UpdatePlan(ctx, plan); err != nil {
		return models.DailyPlan{}, models.Goal{}, err
	}

	g, err := l.AddProgress(ctx, plan.GoalID, actual)
	if err != nil {
		return models.DailyPlan{}, models.Goal{}, err
	}
	return plan, g, nil
}

// UpsertPlan sets the planned amount for goalID on date. An existing plan
// keeps its actual amount and completion flag.
func (l *Ledger) UpsertPlan(ctx context.Context, goalID int64, date time.Time, planned float64) (int64, error) {
	if err := validation.ValidateNonNegative("planned amount", planned); err != nil {
		return 0, err
	}
	if _, err := l.repo.GetGoal(ctx, goalID); err != nil {
		return 0, err
	}

	date = utils.DateOf(date)
	existing, ok, err := l.repo.FindPlan(ctx, goalID, date)
	if err != nil {
		return 0, err
	}
	if ok {
		existing.PlannedAmount = planned
		if err := l.repo.UpdatePlan(ctx, existing); err != nil {
			return 0, err
		}
		return existing.ID, nil
	}

	return l.repo.InsertPlan(ctx, models.DailyPlan{
		GoalID:        goalID,
		Date:          date,
		PlannedAmount: planned,
	})
}
