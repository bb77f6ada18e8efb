package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/existflow/ironhabit/internal/app"
	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
)

// Pane represents which pane is focused
type Pane int

const (
	PaneTodos Pane = iota
	PaneHabits
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTodo
	ModeAddHabit
	ModeFilter
	ModeStats
	ModeHelp
)

// Options connect the model to the rest of the application.
type Options struct {
	Dark bool
	// SaveTheme persists the theme after a toggle.
	SaveTheme func(theme string) error
	// Refresh receives a value whenever the engine re-renders outside a
	// key press, such as after a pull or a background sync.
	Refresh <-chan struct{}
	// Online reports connectivity for the status bar.
	Online func() bool
	// Identity reports whether cloud sync has an identity.
	Identity    func() (model.Identity, bool)
	Diagnostics *logger.Diagnostics
	Now         func() time.Time
}

// Model is the main TUI model
type Model struct {
	engine *app.Engine
	opts   Options
	styles Styles
	dark   bool

	todos   []model.TodoItem
	habits  []model.HabitItem
	visible []int // indices into todos that match the filter

	// UI state
	width       int
	height      int
	pane        Pane
	mode        Mode
	todoCursor  int
	habitCursor int

	// Input
	input      textinput.Model
	filterText string

	undoUntil time.Time
	message   string
	ticks     int
}

// NewModel creates a new TUI model over engine.
func NewModel(engine *app.Engine, opts Options) Model {
	logger.Info("Initializing TUI model")

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = logger.GlobalDiagnostics()
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50

	m := Model{
		engine: engine,
		opts:   opts,
		styles: NewStyles(opts.Dark),
		dark:   opts.Dark,
		pane:   PaneTodos,
		mode:   ModeNormal,
		input:  ti,
	}
	m.loadData()

	logger.Debug("TUI model initialized",
		logger.F("todos", len(m.todos)),
		logger.F("habits", len(m.habits)))
	return m
}

func (m *Model) loadData() {
	snap := m.engine.Snapshot()
	m.todos = snap.Todos
	m.habits = snap.Habits
	m.applyFilter()

	if m.todoCursor >= len(m.visible) {
		m.todoCursor = max(len(m.visible)-1, 0)
	}
	if m.habitCursor >= len(m.habits) {
		m.habitCursor = max(len(m.habits)-1, 0)
	}
}

func (m *Model) applyFilter() {
	m.visible = nil
	for _, t := range model.Filter(m.todos, m.filterText) {
		m.visible = append(m.visible, model.IndexOf(m.todos, t.ID))
	}
}

func (m *Model) currentTodo() *model.TodoItem {
	if m.todoCursor < len(m.visible) {
		return &m.todos[m.visible[m.todoCursor]]
	}
	return nil
}

func (m Model) undoVisible() bool {
	return m.opts.Now().Before(m.undoUntil)
}
