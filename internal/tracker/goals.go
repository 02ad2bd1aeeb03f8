package tracker

import (
	"context"
	"strings"

	apperrors "github.com/julianstephens/goaltrack/internal/errors"
	"github.com/julianstephens/goaltrack/internal/ledger"
	"github.com/julianstephens/goaltrack/internal/logger"
	"github.com/julianstephens/goaltrack/internal/models"
	"github.com/julianstephens/goaltrack/internal/storage"
	"github.com/julianstephens/goaltrack/internal/validation"
)

// readGoals lists goals, newest first, after rolling each one over. year
// restricts the list to one target year when non-zero.
func (t *Tracker) readGoals(ctx context.Context, year int) ([]models.Goal, int, error) {
	var (
		goals   []models.Goal
		changed int
	)
	err := t.tx(ctx, "list goals", func(l *ledger.Ledger, r *storage.Repo) error {
		all, err := r.ListGoals(ctx)
		if err != nil {
			return err
		}
		if goals, changed, err = l.RollAll(ctx, all); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if changed > 0 {
		logger.Debug("Rolled over goals on read", "count", changed)
	}
	if year == 0 {
		return goals, changed, nil
	}

	// Rollover can move a goal into the current target year, so filtering
	// happens after it.
	filtered := make([]models.Goal, 0, len(goals))
	for _, g := range goals {
		if g.TargetYear == year {
			filtered = append(filtered, g)
		}
	}
	return filtered, changed, nil
}

// list reads goals and, when the read persisted a rollover, lets other
// subscribers see it.
func (t *Tracker) list(ctx context.Context, year int) ([]models.Goal, error) {
	goals, changed, err := t.readGoals(ctx, year)
	if err != nil {
		return nil, err
	}
	if changed > 0 {
		t.subs.publish(ctx)
	}
	return goals, nil
}

// ListGoals returns every goal ordered by creation date, newest first.
func (t *Tracker) ListGoals(ctx context.Context) ([]models.Goal, error) {
	return t.list(ctx, 0)
}

// ListGoalsByYear returns the goals whose target year is year.
func (t *Tracker) ListGoalsByYear(ctx context.Context, year int) ([]models.Goal, error) {
	return t.list(ctx, year)
}

func (t *Tracker) SubscribeGoals(ctx context.Context) (*Subscription[[]models.Goal], error) {
	return subscribe(ctx, t.subs, "goals", func(ctx context.Context) ([]models.Goal, error) {
		goals, _, err := t.readGoals(ctx, 0)
		return goals, err
	})
}

func (t *Tracker) SubscribeGoalsByYear(ctx context.Context, year int) (*Subscription[[]models.Goal], error) {
	return subscribe(ctx, t.subs, "goals-by-year", func(ctx context.Context) ([]models.Goal, error) {
		goals, _, err := t.readGoals(ctx, year)
		return goals, err
	})
}

// GetGoal returns one goal with rollover applied.
func (t *Tracker) GetGoal(ctx context.Context, id int64) (models.Goal, error) {
	var g models.Goal
	err := t.tx(ctx, "get goal", func(l *ledger.Ledger, _ *storage.Repo) error {
		var err error
		g, err = l.Current(ctx, id)
		return err
	})
	return g, err
}

// CreateGoal stores a new goal dated today and returns its id.
func (t *Tracker) CreateGoal(ctx context.Context, in models.GoalInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	if err := validation.ValidateGoalInput(in); err != nil {
		return 0, err
	}

	today := t.Today()
	g := models.Goal{
		Name:           in.Name,
		Unit:           in.Unit,
		DailyTarget:    in.DailyTarget,
		WeeklyTarget:   in.WeeklyTarget,
		MonthlyTarget:  in.MonthlyTarget,
		YearlyTarget:   in.YearlyTarget,
		TotalTarget:    in.TotalTarget,
		LastUpdateDate: today,
		CreatedDate:    today,
		TargetYear:     today.Year(),
	}

	var id int64
	err := t.write(ctx, "create goal", func(_ *ledger.Ledger, r *storage.Repo) error {
		var err error
		id, err = r.InsertGoal(ctx, g)
		return err
	})
	if err != nil {
		return 0, err
	}
	logger.Info("Created goal", "id", id, "name", g.Name)
	return id, nil
}

// UpdateGoal overwrites a goal. The creation date cannot change, and a zero
// last update date keeps the stored one.
func (t *Tracker) UpdateGoal(ctx context.Context, g models.Goal) error {
	if err := validation.ValidateGoal(g); err != nil {
		return err
	}
	if g.LastUpdateDate.After(t.Today()) {
		return apperrors.Invalid("last update date", "cannot be after today")
	}

	return t.write(ctx, "update goal", func(_ *ledger.Ledger, r *storage.Repo) error {
		existing, err := r.GetGoal(ctx, g.ID)
		if err != nil {
			return err
		}
		g.CreatedDate = existing.CreatedDate
		if g.LastUpdateDate.IsZero() {
			g.LastUpdateDate = existing.LastUpdateDate
		}
		return r.UpdateGoal(ctx, g)
	})
}

// DeleteGoal removes a goal and, through the foreign key, its plans.
func (t *Tracker) DeleteGoal(ctx context.Context, id int64) error {
	err := t.write(ctx, "delete goal", func(_ *ledger.Ledger, r *storage.Repo) error {
		return r.DeleteGoal(ctx, id)
	})
	if err == nil {
		logger.Info("Deleted goal", "id", id)
	}
	return err
}

// AddProgress adds amount to the goal's counters after rolling it over.
func (t *Tracker) AddProgress(ctx context.Context, id int64, amount float64) (models.Goal, error) {
	var g models.Goal
	err := t.write(ctx, "add progress", func(l *ledger.Ledger, _ *storage.Repo) error {
		var err error
		g, err = l.AddProgress(ctx, id, amount)
		return err
	})
	if err == nil {
		logger.Progress("add progress", id, amount, g.CurrentProgress)
	}
	return g, err
}

// SubtractProgress removes amount from the goal's counters, clamping at zero.
func (t *Tracker) SubtractProgress(ctx context.Context, id int64, amount float64) (models.Goal, error) {
	var g models.Goal
	err := t.write(ctx, "subtract progress", func(l *ledger.Ledger, _ *storage.Repo) error {
		var err error
		g, err = l.SubtractProgress(ctx, id, amount)
		return err
	})
	if err == nil {
		logger.Progress("subtract progress", id, -amount, g.CurrentProgress)
	}
	return g, err
}
