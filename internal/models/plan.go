package models

import "time"

// DailyPlan is the amount a user intends to do for one goal on one date, and
// what was actually done once the plan is completed.
type DailyPlan struct {
	ID            int64     `json:"id"`
	GoalID        int64     `json:"goal_id"`
	Date          time.Time `json:"date"`
	PlannedAmount float64   `json:"planned_amount"`
	ActualAmount  float64   `json:"actual_amount"`
	IsCompleted   bool      `json:"is_completed"`
}

func (p DailyPlan) CompletionRate() float64 {
	if p.PlannedAmount > 0 {
		return p.ActualAmount / p.PlannedAmount * 100
	}
	return 0
}
