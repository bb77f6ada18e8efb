package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/existflow/ironhabit/internal/app"
	"github.com/existflow/ironhabit/internal/localstore"
	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
)

// overdueEvery is how many ticks pass between overdue checks.
const overdueEvery = 30

// tickMsg is sent every second for time updates
type tickMsg time.Time

// refreshMsg is sent when the engine re-rendered in the background
type refreshMsg struct{}

// opMsg reports the outcome of an engine command.
type opMsg struct {
	text   string
	err    error
	undo   bool
	cursor int
}

// overdueMsg carries todos that just became overdue.
type overdueMsg struct {
	items []model.TodoItem
	err   error
}

// Init initializes the model with a tick command
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.waitForRefresh(), m.checkOverdue())
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForRefresh listens for background renders
func (m Model) waitForRefresh() tea.Cmd {
	if m.opts.Refresh == nil {
		return nil
	}
	ch := m.opts.Refresh
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return refreshMsg{}
	}
}

func (m Model) checkOverdue() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		items, err := engine.CheckOverdue()
		return overdueMsg{items: items, err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.ticks++
		cmds := []tea.Cmd{tickCmd()}
		if m.ticks%overdueEvery == 0 {
			cmds = append(cmds, m.checkOverdue())
		}
		return m, tea.Batch(cmds...)

	case refreshMsg:
		m.loadData()
		return m, m.waitForRefresh()

	case opMsg:
		if msg.err != nil {
			m.message = "Error: " + msg.err.Error()
		} else {
			m.message = msg.text
		}
		if msg.undo {
			m.undoUntil = m.opts.Now().Add(model.UndoWindow)
		}
		m.loadData()
		if msg.cursor >= 0 && msg.cursor < len(m.visible) {
			m.todoCursor = msg.cursor
		}
		return m, nil

	case overdueMsg:
		if msg.err != nil {
			logger.Warn("Overdue check failed", logger.F("error", msg.err))
		}
		if len(msg.items) > 0 {
			m.message = "⏰ Task overdue: " + msg.items[0].Text
			if len(msg.items) > 1 {
				m.message += fmt.Sprintf(" (+%d more)", len(msg.items)-1)
			}
			m.loadData()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAddTodo, ModeAddHabit:
			return m.updateInput(msg)
		case ModeFilter:
			return m.updateFilter(msg)
		case ModeStats, ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

// handleNormalKeys handles key presses in normal mode
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Tab):
		if m.pane == PaneTodos {
			m.pane = PaneHabits
		} else {
			m.pane = PaneTodos
		}

	case key.Matches(msg, keys.Up):
		m.handleUp()

	case key.Matches(msg, keys.Down):
		m.handleDown()

	case key.Matches(msg, keys.MoveUp):
		return m, m.handleMove(-1)

	case key.Matches(msg, keys.MoveDown):
		return m, m.handleMove(1)

	case key.Matches(msg, keys.Add):
		return m.startAdd()

	case key.Matches(msg, keys.Done), key.Matches(msg, keys.Enter):
		return m, m.handleDone()

	case key.Matches(msg, keys.Delete):
		return m, m.handleDelete()

	case key.Matches(msg, keys.Undo):
		return m, m.handleUndo()

	case key.Matches(msg, keys.Search):
		return m.startFilter()

	case key.Matches(msg, keys.Escape):
		if m.filterText != "" {
			m.filterText = ""
			m.loadData()
			m.message = "Filter cleared"
		}

	case key.Matches(msg, keys.Stats):
		m.mode = ModeStats

	case key.Matches(msg, keys.Theme):
		m.handleTheme()

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, keys.Refresh):
		cmd := m.handleRefresh()
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleUp() {
	if m.pane == PaneHabits {
		if m.habitCursor > 0 {
			m.habitCursor--
		}
		return
	}
	if m.todoCursor > 0 {
		m.todoCursor--
	}
}

func (m *Model) handleDown() {
	if m.pane == PaneHabits {
		if m.habitCursor < len(m.habits)-1 {
			m.habitCursor++
		}
		return
	}
	if m.todoCursor < len(m.visible)-1 {
		m.todoCursor++
	}
}

func (m Model) startAdd() (tea.Model, tea.Cmd) {
	m.input.Reset()
	if m.pane == PaneHabits {
		m.mode = ModeAddHabit
		m.input.Placeholder = "Habit name"
	} else {
		m.mode = ModeAddTodo
		m.input.Placeholder = "Task @2026-01-31 #category !high"
	}
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) startFilter() (tea.Model, tea.Cmd) {
	m.pane = PaneTodos
	m.mode = ModeFilter
	m.input.Reset()
	m.input.Placeholder = "search"
	m.input.SetValue(m.filterText)
	cmd := m.input.Focus()
	return m, cmd
}

func (m *Model) handleDone() tea.Cmd {
	engine := m.engine
	if m.pane == PaneHabits {
		if m.habitCursor >= len(m.habits) {
			return nil
		}
		i, name := m.habitCursor, m.habits[m.habitCursor].Name
		return func() tea.Msg {
			changed, err := engine.MarkHabitDone(i)
			text := fmt.Sprintf("Already done today: %s", name)
			if changed {
				text = fmt.Sprintf("Streak up: %s", name)
			}
			return opMsg{text: text, err: err, cursor: -1}
		}
	}

	t := m.currentTodo()
	if t == nil {
		return nil
	}
	id, text, cursor := t.ID, t.Text, m.todoCursor
	return func() tea.Msg {
		res, err := engine.Toggle(context.Background(), id)
		return opMsg{text: describeSave("Toggled: "+text, res), err: err, cursor: cursor}
	}
}

func (m *Model) handleDelete() tea.Cmd {
	engine := m.engine
	if m.pane == PaneHabits {
		if m.habitCursor >= len(m.habits) {
			return nil
		}
		i, name := m.habitCursor, m.habits[m.habitCursor].Name
		return func() tea.Msg {
			err := engine.DeleteHabit(i)
			return opMsg{text: "Deleted habit: " + name, err: err, cursor: -1}
		}
	}

	t := m.currentTodo()
	if t == nil {
		return nil
	}
	id, cursor := t.ID, m.todoCursor
	return func() tea.Msg {
		_, _, err := engine.Delete(context.Background(), id)
		return opMsg{text: "Task deleted, press u to undo", err: err, undo: err == nil, cursor: cursor}
	}
}

func (m *Model) handleUndo() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		item, res, err := engine.Undo(context.Background())
		switch {
		case errors.Is(err, model.ErrUndoExpired):
			return opMsg{text: "Too late to undo", cursor: -1}
		case errors.Is(err, model.ErrNothingToUndo):
			return opMsg{text: "Nothing to undo", cursor: -1}
		}
		return opMsg{text: describeSave("Restored: "+item.Text, res), err: err, cursor: -1}
	}
}

// handleMove reorders the selected todo by delta. Moving is disabled while
// a filter hides part of the list.
func (m *Model) handleMove(delta int) tea.Cmd {
	if m.pane != PaneTodos || m.filterText != "" {
		return nil
	}
	t := m.currentTodo()
	if t == nil {
		return nil
	}
	target := m.todoCursor + delta
	if target < 0 || target >= len(m.todos) {
		return nil
	}
	engine, id := m.engine, t.ID
	return func() tea.Msg {
		res, err := engine.Reorder(context.Background(), id, target)
		return opMsg{text: describeSave("Moved", res), err: err, cursor: target}
	}
}

func (m *Model) handleTheme() {
	m.dark = !m.dark
	m.styles = NewStyles(m.dark)

	theme := localstore.ThemeLight
	if m.dark {
		theme = localstore.ThemeDark
	}
	if m.opts.SaveTheme != nil {
		if err := m.opts.SaveTheme(theme); err != nil {
			logger.Warn("Failed to save theme", logger.F("error", err))
		}
	}
	m.message = "Theme: " + theme
}

func (m *Model) handleRefresh() tea.Cmd {
	engine := m.engine
	m.message = "Pushing..."
	return func() tea.Msg {
		res, err := engine.ForcePush(context.Background())
		if err == nil && res.State == app.StatePersistedLocal {
			return opMsg{text: "Saved locally (offline or no identity)", cursor: -1}
		}
		return opMsg{text: describeSave("Saved", res), err: err, cursor: -1}
	}
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := m.input.Value()
		mode := m.mode
		m.mode = ModeNormal
		m.input.Blur()
		if value == "" {
			return m, nil
		}

		engine := m.engine
		if mode == ModeAddHabit {
			return m, func() tea.Msg {
				err := engine.AddHabit(value)
				return opMsg{text: "Added habit: " + value, err: err, cursor: -1}
			}
		}

		in := parseQuickAdd(value, m.opts.Now())
		return m, func() tea.Msg {
			item, res, err := engine.AddTodo(context.Background(), in)
			return opMsg{text: describeSave("Added: "+item.Text, res), err: err, cursor: -1}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.filterText = ""
		m.input.Blur()
		m.loadData()
		return m, nil

	case key.Matches(msg, keys.Enter):
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	// Live filter as user types
	m.filterText = m.input.Value()
	m.applyFilter()
	m.todoCursor = 0
	return m, cmd
}
