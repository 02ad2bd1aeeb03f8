// Package tui is a live terminal view of goal progress. It renders the
// snapshots of a goal subscription and issues progress commands.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/goaltrack/internal/models"
)

// Source is the part of the tracker the view drives.
type Source interface {
	AddProgress(ctx context.Context, id int64, amount float64) (models.Goal, error)
	SubtractProgress(ctx context.Context, id int64, amount float64) (models.Goal, error)
	Refresh(ctx context.Context)
	Today() time.Time
}

// refreshInterval bounds how stale "today" can get while the view is idle.
const refreshInterval = time.Minute

type (
	goalsMsg  []models.Goal
	closedMsg struct{}
	tickMsg   time.Time
	statusMsg string
	errMsg    struct{ err error }
)

type Model struct {
	ctx     context.Context
	src     Source
	updates <-chan []models.Goal
	step    float64

	goals  []models.Goal
	cursor int
	status string
	err    error

	keys     KeyMap
	help     help.Model
	bar      progress.Model
	width    int
	quitting bool
}

// NewModel builds a view over updates. step is the amount + and - apply.
func NewModel(ctx context.Context, src Source, updates <-chan []models.Goal, step float64) Model {
	if step <= 0 {
		step = 1
	}
	return Model{
		ctx:     ctx,
		src:     src,
		updates: updates,
		step:    step,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(30)),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForGoals(), tick())
}

func (m Model) waitForGoals() tea.Cmd {
	return func() tea.Msg {
		goals, ok := <-m.updates
		if !ok {
			return closedMsg{}
		}
		return goalsMsg(goals)
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		m.src.Refresh(m.ctx)
		return nil
	}
}

// apply runs a progress change against the selected goal.
func (m Model) apply(sign float64) tea.Cmd {
	g, ok := m.selected()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		var err error
		if sign > 0 {
			_, err = m.src.AddProgress(m.ctx, g.ID, m.step)
		} else {
			_, err = m.src.SubtractProgress(m.ctx, g.ID, m.step)
		}
		if err != nil {
			return errMsg{err}
		}
		verb := "Added"
		if sign < 0 {
			verb = "Subtracted"
		}
		return statusMsg(verb + " " + formatAmount(m.step) + " " + g.Unit + " for " + g.Name)
	}
}

func (m Model) selected() (models.Goal, bool) {
	if m.cursor < 0 || m.cursor >= len(m.goals) {
		return models.Goal{}, false
	}
	return m.goals[m.cursor], true
}

// Goals returns the snapshot currently shown.
func (m Model) Goals() []models.Goal { return m.goals }

// Cursor returns the index of the selected goal.
func (m Model) Cursor() int { return m.cursor }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case goalsMsg:
		m.goals = msg
		if m.cursor >= len(m.goals) {
			m.cursor = len(m.goals) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, m.waitForGoals()

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())

	case statusMsg:
		m.status, m.err = string(msg), nil

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.goals)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Add):
			return m, m.apply(1)
		case key.Matches(msg, m.keys.Sub):
			return m, m.apply(-1)
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refresh()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}
