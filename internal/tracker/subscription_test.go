package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/julianstephens/goaltrack/internal/models"
	"github.com/julianstephens/goaltrack/internal/utils"
)

func receive[T any](t *testing.T, s *Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-s.Updates():
		if !ok {
			t.Fatal("subscription closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func assertEmpty[T any](t *testing.T, s *Subscription[T]) {
	t.Helper()
	select {
	case v := <-s.Updates():
		t.Fatalf("unexpected pending snapshot: %+v", v)
	default:
	}
}

func TestSubscribeGoalsDeliversSnapshots(t *testing.T) {
	tr, _, _ := setupTracker(t, morning(2024, 5, 1))
	ctx := context.Background()

	sub, err := tr.SubscribeGoals(ctx)
	if err != nil {
		t.Fatalf("SubscribeGoals failed: %v", err)
	}
	defer sub.Close()

	if got := receive(t, sub); len(got) != 0 {
		t.Fatalf("initial snapshot = %d goals, want 0", len(got))
	}

	id := createGoal(t, tr, "Read")
	if got := receive(t, sub); len(got) != 1 || got[0].ID != id {
		t.Fatalf("snapshot after create = %+v", got)
	}

	if _, err := tr.AddProgress(ctx, id, 3); err != nil {
		t.Fatalf("AddProgress failed: %v", err)
	}
	if got := receive(t, sub); got[0].CurrentProgress != 3 {
		t.Errorf("snapshot after add = %v, want 3", got[0].CurrentProgress)
	}
}

func TestSubscriptionKeepsOnlyLatest(t *testing.T) {
	tr, _, _ := setupTracker(t, morning(2024, 5, 1))
	ctx := context.Background()
	id := createGoal(t, tr, "Read")

	sub, err := tr.SubscribeGoals(ctx)
	if err != nil {
		t.Fatalf("SubscribeGoals failed: %v", err)
	}
	defer sub.Close()

	for i := 0; i < 5; i++ {
		if _, err := tr.AddProgress(ctx, id, 1); err != nil {
			t.Fatalf("AddProgress failed: %v", err)
		}
	}

	if got := receive(t, sub); got[0].CurrentProgress != 5 {
		t.Errorf("latest snapshot progress = %v, want 5", got[0].CurrentProgress)
	}
	assertEmpty(t, sub)
}

func TestSubscriptionSeesRolloverAfterRefresh(t *testing.T) {
	tr, _, clock := setupTracker(t, morning(2024, 5, 1))
	ctx := context.Background()
	id := createGoal(t, tr, "Read")
	if _, err := tr.AddProgress(ctx, id, 4); err != nil {
		t.Fatalf("AddProgress failed: %v", err)
	}

	sub, err := tr.SubscribeGoalsByYear(ctx, 2024)
	if err != nil {
		t.Fatalf("SubscribeGoalsByYear failed: %v", err)
	}
	defer sub.Close()
	if got := receive(t, sub); got[0].TodayProgress != 4 {
		t.Fatalf("initial today = %v, want 4", got[0].TodayProgress)
	}

	clock.Set(morning(2024, 5, 2))
	tr.Refresh(ctx)

	if got := receive(t, sub); got[0].TodayProgress != 0 || got[0].CurrentProgress != 4 {
		t.Errorf("after refresh today=%v current=%v, want 0 and 4", got[0].TodayProgress, got[0].CurrentProgress)
	}
}

func TestSubscribePlans(t *testing.T) {
	tr, _, _ := setupTracker(t, morning(2024, 5, 1))
	ctx := context.Background()
	id := createGoal(t, tr, "Read")
	day := utils.Date(2024, 5, 1)

	byDate, err := tr.SubscribePlansForDate(ctx, day)
	if err != nil {
		t.Fatalf("SubscribePlansForDate failed: %v", err)
	}
	defer byDate.Close()
	byGoal, err := tr.SubscribePlansForGoal(ctx, id)
	if err != nil {
		t.Fatalf("SubscribePlansForGoal failed: %v", err)
	}
	defer byGoal.Close()
	receive(t, byDate)
	receive(t, byGoal)

	planID, err := tr.UpsertPlan(ctx, id, day, 8)
	if err != nil {
		t.Fatalf("UpsertPlan failed: %v", err)
	}
	for _, got := range [][]models.DailyPlan{receive(t, byDate), receive(t, byGoal)} {
		if len(got) != 1 || got[0].ID != planID || got[0].PlannedAmount != 8 {
			t.Errorf("plans snapshot = %+v", got)
		}
	}
}

func TestSubscriptionClose(t *testing.T) {
	tr, _, _ := setupTracker(t, morning(2024, 5, 1))
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := tr.SubscribeGoals(ctx)
	if err != nil {
		t.Fatalf("SubscribeGoals failed: %v", err)
	}
	receive(t, sub)

	cancel()
	select {
	case _, ok := <-sub.Updates():
		if ok {
			t.Fatal("received a snapshot after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}

	// Writes after close must not panic on the closed channel.
	createGoal(t, tr, "After")
	sub.Close()

	if n := len(tr.subs.snapshot()); n != 0 {
		t.Errorf("hub still holds %d subscriptions", n)
	}
}
