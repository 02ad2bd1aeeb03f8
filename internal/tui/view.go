package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/goaltrack/internal/constants"
	"github.com/julianstephens/goaltrack/internal/models"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	today := m.src.Today()
	var b strings.Builder
	b.WriteString(titleStyle.Render(constants.AppName+" · "+today.Format(constants.DateFormat)) + "\n\n")

	if len(m.goals) == 0 {
		b.WriteString(mutedStyle.Render("No goals yet. Add one with 'goaltrack goal add'.") + "\n")
	}
	for i, g := range m.goals {
		b.WriteString(m.viewGoal(g, i == m.cursor))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(dangerStyle.Render("Error: "+m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString(mutedStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))

	return docStyle.Render(b.String())
}

func (m Model) viewGoal(g models.Goal, selected bool) string {
	name := nameStyle.Render(g.Name)
	marker := "  "
	if selected {
		name = selectedStyle.Render(g.Name)
		marker = selectedStyle.Render("> ")
	}

	pct := g.MainProgressPercentage()
	head := fmt.Sprintf("%s%s  %s / %s %s (%.0f%%)", marker, name,
		formatAmount(g.CurrentProgress), formatAmount(g.MainTarget()), g.Unit, pct)

	var periods []string
	for _, p := range []struct {
		label    string
		progress float64
		target   *float64
	}{
		{"today", g.TodayProgress, g.DailyTarget},
		{"week", g.WeekProgress, g.WeeklyTarget},
		{"month", g.MonthProgress, g.MonthlyTarget},
	} {
		if p.target == nil {
			continue
		}
		periods = append(periods, fmt.Sprintf("%s %s/%s", p.label, formatAmount(p.progress), formatAmount(*p.target)))
	}
	detail := fmt.Sprintf("need %s/day", formatAmount(round(g.DailyRequired(m.src.Today()))))
	if len(periods) > 0 {
		detail = strings.Join(periods, " · ") + " · " + detail
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		head,
		"  "+m.bar.ViewAs(clamp01(pct/100)),
		"  "+mutedStyle.Render(detail),
	)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
