// Package validation checks goal input at the command boundary and audits a
// stored goal set for states the ledger should never produce.
package validation

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	apperrors "github.com/julianstephens/goaltrack/internal/errors"
	"github.com/julianstephens/goaltrack/internal/models"
	"github.com/julianstephens/goaltrack/internal/utils"
)

const maxNameLength = 200

// ValidateAmount rejects NaN and infinities.
func ValidateAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperrors.Invalid(field, "must be a finite number")
	}
	return nil
}

// ValidateNonNegative rejects amounts that are not finite or below zero.
func ValidateNonNegative(field string, v float64) error {
	if err := ValidateAmount(field, v); err != nil {
		return err
	}
	if v < 0 {
		return apperrors.Invalid(field, "must not be negative (got %g)", v)
	}
	return nil
}

func validateTarget(field string, v *float64) error {
	if v == nil {
		return nil
	}
	return ValidateNonNegative(field, *v)
}

func validateLabel(field, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return apperrors.Invalid(field, "must not be empty")
	}
	if len(v) > maxNameLength {
		return apperrors.Invalid(field, "must be at most %d characters", maxNameLength)
	}
	return nil
}

func validateTargets(daily, weekly, monthly, yearly, total *float64) error {
	for _, t := range []struct {
		field string
		v     *float64
	}{
		{"daily target", daily},
		{"weekly target", weekly},
		{"monthly target", monthly},
		{"yearly target", yearly},
		{"total target", total},
	} {
		if err := validateTarget(t.field, t.v); err != nil {
			return err
		}
	}
	if yearly == nil && total == nil {
		return apperrors.Invalid("target", "a yearly or total target is required")
	}
	return nil
}

// ValidateGoalInput checks a goal before it is created.
func ValidateGoalInput(in models.GoalInput) error {
	if err := validateLabel("name", in.Name); err != nil {
		return err
	}
	if err := validateLabel("unit", in.Unit); err != nil {
		return err
	}
	return validateTargets(in.DailyTarget, in.WeeklyTarget, in.MonthlyTarget, in.YearlyTarget, in.TotalTarget)
}

// ValidateGoal checks a full goal before it replaces the stored one.
func ValidateGoal(g models.Goal) error {
	if err := validateLabel("name", g.Name); err != nil {
		return err
	}
	if err := validateLabel("unit", g.Unit); err != nil {
		return err
	}
	if err := validateTargets(g.DailyTarget, g.WeeklyTarget, g.MonthlyTarget, g.YearlyTarget, g.TotalTarget); err != nil {
		return err
	}
	for _, c := range []struct {
		field string
		v     float64
	}{
		{"current progress", g.CurrentProgress},
		{"today progress", g.TodayProgress},
		{"week progress", g.WeekProgress},
		{"month progress", g.MonthProgress},
	} {
		if err := ValidateNonNegative(c.field, c.v); err != nil {
			return err
		}
	}
	return nil
}

// ConflictType represents the type of audit finding
type ConflictType string

const (
	ConflictDuplicatePlan     ConflictType = "duplicate_plan"
	ConflictFutureUpdate      ConflictType = "future_last_update"
	ConflictMissingMainTarget ConflictType = "missing_main_target"
	ConflictNegativeCounter   ConflictType = "negative_counter"
	ConflictOrphanPlan        ConflictType = "orphan_plan"
)

// Conflict is one problem found in stored data.
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string  // YYYY-MM-DD, when the conflict is tied to a date
	GoalID      int64   // zero when not tied to a goal
	PlanIDs     []int64 // plans involved, ascending
}

// Result contains all detected conflicts
type Result struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (r *Result) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (r *Result) FormatReport() string {
	if !r.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range r.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

// Validator audits goals and plans.
type Validator struct {
	today time.Time
}

// New creates a validator that treats today as the evaluation date.
func New(today time.Time) *Validator {
	return &Validator{today: utils.DateOf(today)}
}

// Validate audits a goal set and its plans.
func (v *Validator) Validate(goals []models.Goal, plans []models.DailyPlan) Result {
	var result Result

	known := make(map[int64]models.Goal, len(goals))
	for _, g := range goals {
		known[g.ID] = g
		result.Conflicts = append(result.Conflicts, v.checkGoal(g)...)
	}

	type planKey struct {
		goalID int64
		date   string
	}
	groups := make(map[planKey][]int64)
	var keys []planKey
	for _, p := range plans {
		date := utils.FormatDate(p.Date)
		if _, ok := known[p.GoalID]; !ok {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictOrphanPlan,
				Description: fmt.Sprintf("Plan %d on %s references missing goal %d", p.ID, date, p.GoalID),
				Date:        date,
				GoalID:      p.GoalID,
				PlanIDs:     []int64{p.ID},
			})
			continue
		}
		k := planKey{p.GoalID, date}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], p.ID)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].goalID < keys[j].goalID
	})
	for _, k := range keys {
		ids := groups[k]
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		result.Conflicts = append(result.Conflicts, Conflict{
			Type: ConflictDuplicatePlan,
			Description: fmt.Sprintf("Goal %q has %d plans on %s (ids %v); updates go to plan %d",
				known[k.goalID].Name, len(ids), k.date, ids, ids[0]),
			Date:    k.date,
			GoalID:  k.goalID,
			PlanIDs: ids,
		})
	}

	return result
}

func (v *Validator) checkGoal(g models.Goal) []Conflict {
	var conflicts []Conflict

	if !g.HasMainTarget() {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictMissingMainTarget,
			Description: fmt.Sprintf("Goal %q has neither a yearly nor a total target", g.Name),
			GoalID:      g.ID,
		})
	}

	if g.LastUpdateDate.After(v.today) {
		date := utils.FormatDate(g.LastUpdateDate)
		conflicts = append(conflicts, Conflict{
			Type: ConflictFutureUpdate,
			Description: fmt.Sprintf("Goal %q was last updated on %s, after today (%s); rollover is suspended until then",
				g.Name, date, utils.FormatDate(v.today)),
			Date:   date,
			GoalID: g.ID,
		})
	}

	if g.CurrentProgress < 0 || g.TodayProgress < 0 || g.WeekProgress < 0 || g.MonthProgress < 0 {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictNegativeCounter,
			Description: fmt.Sprintf("Goal %q has a negative progress counter", g.Name),
			GoalID:      g.ID,
		})
	}

	return conflicts
}
