package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/julianstephens/goaltrack/internal/errors"
	"github.com/julianstephens/goaltrack/internal/models"
	"github.com/julianstephens/goaltrack/internal/rollover"
	"github.com/julianstephens/goaltrack/internal/utils"
)

// memRepo is an in-memory Repository. failUpdateGoal makes UpdateGoal fail
// after everything before it has been written.
type memRepo struct {
	goals          map[int64]models.Goal
	plans          map[int64]models.DailyPlan
	nextPlan       int64
	goalWrites     int
	failUpdateGoal bool
}

func newMemRepo(goals ...models.Goal) *memRepo {
	r := &memRepo{goals: map[int64]models.Goal{}, plans: map[int64]models.DailyPlan{}, nextPlan: 1}
	for _, g := range goals {
		r.goals[g.ID] = g
	}
	return r
}

func (r *memRepo) GetGoal(_ context.Context, id int64) (models.Goal, error) {
	g, ok := r.goals[id]
	if !ok {
		return models.Goal{}, apperrors.NotFound("goal", id)
	}
	return g, nil
}

func (r *memRepo) UpdateGoal(_ context.Context, g models.Goal) error {
	if r.failUpdateGoal {
		return fmt.Errorf("disk full")
	}
	r.goals[g.ID] = g
	r.goalWrites++
	return nil
}

func (r *memRepo) GetPlan(_ context.Context, id int64) (models.DailyPlan, error) {
	p, ok := r.plans[id]
	if !ok {
		return models.DailyPlan{}, apperrors.NotFound("plan", id)
	}
	return p, nil
}

func (r *memRepo) FindPlan(_ context.Context, goalID int64, date time.Time) (models.DailyPlan, bool, error) {
	var best models.DailyPlan
	found := false
	for _, p := range r.plans {
		if p.GoalID == goalID && p.Date.Equal(date) && (!found || p.ID < best.ID) {
			best, found = p, true
		}
	}
	return best, found, nil
}

func (r *memRepo) InsertPlan(_ context.Context, p models.DailyPlan) (int64, error) {
	p.ID = r.nextPlan
	r.nextPlan++
	r.plans[p.ID] = p
	return p.ID, nil
}

func (r *memRepo) UpdatePlan(_ context.Context, p models.DailyPlan) error {
	if _, ok := r.plans[p.ID]; !ok {
		return apperrors.NotFound("plan", p.ID)
	}
	r.plans[p.ID] = p
	return nil
}

func testGoal() models.Goal {
	return models.Goal{
		ID:              1,
		Name:            "Read",
		Unit:            "pages",
		YearlyTarget:    models.Float(3650),
		DailyTarget:     models.Float(10),
		CurrentProgress: 100,
		TodayProgress:   4,
		WeekProgress:    12,
		MonthProgress:   40,
		LastUpdateDate:  utils.Date(2024, 6, 15),
		CreatedDate:     utils.Date(2024, 1, 1),
		TargetYear:      2024,
	}
}

func TestAddProgress(t *testing.T) {
	repo := newMemRepo(testGoal())
	l := New(repo, rollover.ISO, utils.Date(2024, 6, 15))

	g, err := l.AddProgress(context.Background(), 1, 2.5)
	if err != nil {
		t.Fatalf("AddProgress() error = %v", err)
	}
	if g.CurrentProgress != 102.5 || g.TodayProgress != 6.5 || g.WeekProgress != 14.5 || g.MonthProgress != 42.5 {
		t.Errorf("counters = (%v, %v, %v, %v)", g.CurrentProgress, g.TodayProgress, g.WeekProgress, g.MonthProgress)
	}
	if repo.goalWrites != 1 {
		t.Errorf("goal writes = %d, want 1", repo.goalWrites)
	}
	if repo.goals[1] != g {
		t.Error("returned goal differs from stored goal")
	}
}

func TestAddProgressAfterDayRollover(t *testing.T) {
	g := models.Goal{
		ID:             1,
		DailyTarget:    models.Float(5),
		TotalTarget:    models.Float(100),
		TodayProgress:  5,
		LastUpdateDate: utils.Date(2024, 1, 1),
		TargetYear:     2024,
	}
	repo := newMemRepo(g)
	l := New(repo, rollover.ISO, utils.Date(2024, 1, 2))

	got, err := l.AddProgress(context.Background(), 1, 3)
	if err != nil {
		t.Fatalf("AddProgress() error = %v", err)
	}
	if got.TodayProgress != 3 {
		t.Errorf("TodayProgress = %v, want 3", got.TodayProgress)
	}
	if got.LastUpdateDate != utils.Date(2024, 1, 2) {
		t.Errorf("LastUpdateDate = %s, want 2024-01-02", utils.FormatDate(got.LastUpdateDate))
	}
	if repo.goalWrites != 1 {
		t.Errorf("goal writes = %d, want 1", repo.goalWrites)
	}
}

func TestAddProgressAfterYearRollover(t *testing.T) {
	repo := newMemRepo(testGoal())
	l := New(repo, rollover.ISO, utils.Date(2025, 1, 3))

	g, err := l.AddProgress(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("AddProgress() error = %v", err)
	}
	if g.CurrentProgress != 1 || g.TodayProgress != 1 || g.WeekProgress != 1 || g.MonthProgress != 1 {
		t.Errorf("counters = (%v, %v, %v, %v), want all 1",
			g.CurrentProgress, g.TodayProgress, g.WeekProgress, g.MonthProgress)
	}
	if g.TargetYear != 2025 {
		t.Errorf("TargetYear = %d, want 2025", g.TargetYear)
	}
}

func TestNegativeAddClamps(t *testing.T) {
	repo := newMemRepo(testGoal())
	l := New(repo, rollover.ISO, utils.Date(2024, 6, 15))

	g, err := l.AddProgress(context.Background(), 1, -20)
	if err != nil {
		t.Fatalf("AddProgress() error = %v", err)
	}
	if g.CurrentProgress != 80 || g.TodayProgress != 0 || g.WeekProgress != 0 || g.MonthProgress != 20 {
		t.Errorf("counters = (%v, %v, %v, %v), want (80, 0, 0, 20)",
			g.CurrentProgress, g.TodayProgress, g.WeekProgress, g.MonthProgress)
	}
}

func TestSubtractProgress(t *testing.T) {
	tests := []struct {
		name                        string
		amount                      float64
		current, today, week, month float64
		wantErr                     bool
	}{
		{"within every counter", 3, 97, 1, 9, 37, false},
		{"clamps smaller counters", 15, 85, 0, 0, 25, false},
		{"clamps everything", 1000, 0, 0, 0, 0, false},
		{"zero is a no-op", 0, 100, 4, 12, 40, false},
		{"negative rejected", -1, 0, 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(testGoal())
			l := New(repo, rollover.ISO, utils.Date(2024, 6, 15))

			g, err := l.SubtractProgress(context.Background(), 1, tt.amount)
			if tt.wantErr {
				if !apperrors.IsValidation(err) {
					t.Fatalf("SubtractProgress() error = %v, want validation error", err)
				}
				if repo.goalWrites != 0 {
					t.Error("rejected subtraction wrote the goal")
				}
				return
			}
			if err != nil {
				t.Fatalf("SubtractProgress() error = %v", err)
			}
			if g.CurrentProgress != tt.current || g.TodayProgress != tt.today ||
				g.WeekProgress != tt.week || g.MonthProgress != tt.month {
				t.Errorf("counters = (%v, %v, %v, %v), want (%v, %v, %v, %v)",
					g.CurrentProgress, g.TodayProgress, g.WeekProgress, g.MonthProgress,
					tt.current, tt.today, tt.week, tt.month)
			}
		})
	}
}

func TestProgressRejectsBadInput(t *testing.T) {
	repo := newMemRepo(testGoal())
	l := New(repo, rollover.ISO, utils.Date(2024, 6, 15))
	ctx := context.Background()

	if _, err := l.AddProgress(ctx, 99, 1); !apperrors.IsNotFound(err) {
		t.Errorf("AddProgress(missing) error = %v, want not found", err)
	}
	if _, err := l.SubtractProgress(ctx, 99, 1); !apperrors.IsNotFound(err) {
		t.Errorf("SubtractProgress(missing) error = %v, want not found", err)
	}
	var zero float64
	if _, err := l.AddProgress(ctx, 1, 1/zero); !apperrors.IsValidation(err) {
		t.Errorf("AddProgress(+Inf) error = %v, want validation error", err)
	}
}

func TestFutureStampedGoalIsNotRolledBack(t *testing.T) {
	g := testGoal()
	g.LastUpdateDate = utils.Date(2024, 6, 20)
	repo := newMemRepo(g)
	l := New(repo, rollover.ISO, utils.Date(2024, 6, 15))

	got, err := l.AddProgress(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("AddProgress() error = %v", err)
	}
	if got.TodayProgress != 5 {
		t.Errorf("TodayProgress = %v, want 5", got.TodayProgress)
	}
	if got.LastUpdateDate != utils.Date(2024, 6, 20) {
		t.Errorf("LastUpdateDate moved to %s", utils.FormatDate(got.LastUpdateDate))
	}
}

func TestCurrentPersistsRollover(t *testing.T) {
	repo := newMemRepo(testGoal())
	ctx := context.Background()

	same := New(repo, rollover.ISO, utils.Date(2024, 6, 15))
	if _, err := same.Current(ctx, 1); err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if repo.goalWrites != 0 {
		t.Errorf("Current() on an up-to-date goal wrote %d times", repo.goalWrites)
	}

	nextDay := New(repo, rollover.ISO, utils.Date(2024, 6, 16))
	g, err := nextDay.Current(ctx, 1)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if g.TodayProgress != 0 || repo.goals[1].TodayProgress != 0 {
		t.Errorf("today progress not reset and persisted: returned %v stored %v", g.TodayProgress, repo.goals[1].TodayProgress)
	}
	if repo.goalWrites != 1 {
		t.Errorf("goal writes = %d, want 1", repo.goalWrites)
	}
}

func TestRollAll(t *testing.T) {
	fresh := testGoal()
	fresh.ID = 2
	fresh.LastUpdateDate = utils.Date(2024, 7, 1)
	repo := newMemRepo(testGoal(), fresh)
	l := New(repo, rollover.ISO, utils.Date(2024, 7, 1))

	goals, changed, err := l.RollAll(context.Background(), []models.Goal{repo.goals[2], repo.goals[1]})
	if err != nil {
		t.Fatalf("RollAll() error = %v", err)
	}
	if changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}
	if goals[0].ID != 2 || goals[1].ID != 1 {
		t.Errorf("order not preserved: %d, %d", goals[0].ID, goals[1].ID)
	}
	if goals[1].MonthProgress != 0 || goals[1].CurrentProgress != 100 {
		t.Errorf("month rollover not applied: month=%v current=%v", goals[1].MonthProgress, goals[1].CurrentProgress)
	}
}

func TestCompletePlan(t *testing.T) {
	repo := newMemRepo(testGoal())
	l := New(repo, rollover.ISO, utils.Date(2024, 6, 15))
	ctx := context.Background()

	id, err := l.UpsertPlan(ctx, 1, utils.Date(2024, 6, 15), 10)
	if err != nil {
		t.Fatalf("UpsertPlan() error = %v", err)
	}

	plan, g, err := l.CompletePlan(ctx, id, 8)
	if err != nil {
		t.Fatalf("CompletePlan() error = %v", err)
	}
	if !plan.IsCompleted || plan.ActualAmount != 8 {
		t.Errorf("plan = %+v, want completed with actual 8", plan)
	}
	if g.CurrentProgress != 108 || g.TodayProgress != 12 {
		t.Errorf("goal current=%v today=%v, want 108, 12", g.CurrentProgress, g.TodayProgress)
	}
	if got := repo.plans[id].CompletionRate(); got != 80 {
		t.Errorf("CompletionRate() = %v, want 80", got)
	}
}

func TestCompletePlanErrors(t *testing.T) {
	repo := newMemRepo(testGoal())
	l := New(repo, rollover.ISO, utils.Date(2024, 6, 15))
	ctx := context.Background()

	if _, _, err := l.CompletePlan(ctx, 42, 1); !apperrors.IsNotFound(err) {
		t.Errorf("CompletePlan(missing) error = %v, want not found", err)
	}

	id, _ := l.UpsertPlan(ctx, 1, utils.Date(2024, 6, 15), 10)
	if _, _, err := l.CompletePlan(ctx, id, -1); !apperrors.IsValidation(err) {
		t.Errorf("CompletePlan(negative) error = %v, want validation error", err)
	}

	repo.failUpdateGoal = true
	if _, _, err := l.CompletePlan(ctx, id, 5); err == nil {
		t.Fatal("CompletePlan() succeeded with a failing goal write")
	}
}

func TestUpsertPlan(t *testing.T) {
	repo := newMemRepo(testGoal())
	l := New(repo, rollover.ISO, utils.Date(2024, 6, 15))
	ctx := context.Background()
	date := utils.Date(2024, 6, 16)

	id, err := l.UpsertPlan(ctx, 1, date, 10)
	if err != nil {
		t.Fatalf("UpsertPlan() error = %v", err)
	}
	if _, _, err := l.CompletePlan(ctx, id, 7); err != nil {
		t.Fatalf("CompletePlan() error = %v", err)
	}

	again, err := l.UpsertPlan(ctx, 1, date.Add(9*time.Hour), 12)
	if err != nil {
		t.Fatalf("UpsertPlan() error = %v", err)
	}
	if again != id {
		t.Errorf("UpsertPlan() created plan %d, want update of %d", again, id)
	}
	p := repo.plans[id]
	if p.PlannedAmount != 12 || p.ActualAmount != 7 || !p.IsCompleted {
		t.Errorf("plan = %+v, want planned 12 with actual and completion preserved", p)
	}
	if len(repo.plans) != 1 {
		t.Errorf("plans = %d, want 1", len(repo.plans))
	}

	if _, err := l.UpsertPlan(ctx, 99, date, 1); !apperrors.IsNotFound(err) {
		t.Errorf("UpsertPlan(missing goal) error = %v, want not found", err)
	}
	if _, err := l.UpsertPlan(ctx, 1, date, -3); !apperrors.IsValidation(err) {
		t.Errorf("UpsertPlan(negative) error = %v, want validation error", err)
	}
}
