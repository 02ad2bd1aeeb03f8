package goals

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/goaltrack/internal/models"
)

// goalForm holds the raw text of the interactive create form.
type goalForm struct {
	Name    string
	Unit    string
	Daily   string
	Weekly  string
	Monthly string
	Yearly  string
	Total   string
}

func validateOptionalAmount(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if v < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validateRequired(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", label)
		}
		return nil
	}
}

func newGoalForm(fm *goalForm) *huh.Form {
	amount := func(title, description string, value *string) *huh.Input {
		return huh.NewInput().
			Title(title).
			Description(description).
			Value(value).
			Validate(validateOptionalAmount)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&fm.Name).
				Validate(validateRequired("name")),
			huh.NewInput().
				Title("Unit").
				Description("What you count, e.g. km, pages, minutes").
				Value(&fm.Unit).
				Validate(validateRequired("unit")),
		),
		huh.NewGroup(
			amount("Yearly target", "Resets every January 1st", &fm.Yearly),
			amount("Total target", "Takes precedence over the yearly target", &fm.Total),
			amount("Daily target", "Optional", &fm.Daily),
			amount("Weekly target", "Optional", &fm.Weekly),
			amount("Monthly target", "Optional", &fm.Monthly),
		).WithShowErrors(true),
	).WithTheme(huh.ThemeDracula())
}

// input converts the form into a GoalInput. Empty fields are unset targets.
func (fm *goalForm) input() (models.GoalInput, error) {
	in := models.GoalInput{Name: fm.Name, Unit: fm.Unit}
	for _, f := range []struct {
		raw  string
		dest **float64
	}{
		{fm.Daily, &in.DailyTarget},
		{fm.Weekly, &in.WeeklyTarget},
		{fm.Monthly, &in.MonthlyTarget},
		{fm.Yearly, &in.YearlyTarget},
		{fm.Total, &in.TotalTarget},
	} {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.GoalInput{}, fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		*f.dest = models.Float(v)
	}
	return in, nil
}
