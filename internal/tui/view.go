package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/ironhabit/internal/model"
)

// warningTTL is how long a diagnostic stays in the status bar.
const warningTTL = time.Minute

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var main string
	switch m.mode {
	case ModeHelp:
		main = m.renderHelp()
	case ModeStats:
		main = m.place(m.renderStats())
	case ModeAddTodo, ModeAddHabit:
		main = m.place(m.renderModal())
	default:
		todoWidth := m.width * 2 / 3
		main = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderTodos(todoWidth),
			m.renderHabits(m.width-todoWidth))
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), main, m.renderStatusBar())
}

func (m Model) place(modal string) string {
	return lipgloss.Place(
		m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		modal,
		lipgloss.WithWhitespaceChars(" "),
	)
}

func (m Model) renderHeader() string {
	stats := model.Summarize(m.todos)
	title := m.styles.Header.Render("IronHabit")
	summary := fmt.Sprintf(" %d/%d done ", stats.Done, stats.Total)
	return title + m.styles.Help.Render(summary) + progressBar(m.styles, stats, 20)
}

func (m Model) renderTodos(width int) string {
	style := m.styles.Pane
	if m.pane == PaneTodos {
		style = m.styles.PaneFocused
	}
	inner := width - 4
	var b strings.Builder

	header := "Todos"
	if m.filterText != "" {
		header = fmt.Sprintf("Todos matching %q (%d)", m.filterText, len(m.visible))
	}
	b.WriteString(m.styles.Header.Render(header) + "\n")

	if len(m.todos) == 0 {
		b.WriteString(m.styles.Help.Render("No tasks yet. Press 'a' to add one."))
	}

	today := model.Today(m.opts.Now())
	for row, idx := range m.visible {
		t := m.todos[idx]

		cursor := "  "
		lineStyle := m.styles.Item
		if row == m.todoCursor && m.pane == PaneTodos {
			cursor = "❯ "
			lineStyle = m.styles.ItemSelected
		}

		icon := "[ ]"
		if t.Done {
			icon = "[x]"
			lineStyle = m.styles.ItemDone
		}

		date := t.Date
		if t.IsOverdue(today) {
			date = m.styles.Overdue.Render(date)
		}

		text := truncate(fmt.Sprintf("%s (%s)", t.Text, t.Category), max(inner-24, 8))
		line := lineStyle.Render(fmt.Sprintf("%s%s %-*s", cursor, icon, max(inner-24, 8), text))
		b.WriteString(line + " " + date + " " + m.styles.Priority(t.Priority) + "\n")
	}

	return style.Width(width - 2).Height(m.height - 6).Render(b.String())
}

func (m Model) renderHabits(width int) string {
	style := m.styles.Pane
	if m.pane == PaneHabits {
		style = m.styles.PaneFocused
	}
	var b strings.Builder

	b.WriteString(m.styles.Header.Render("Habits") + "\n")
	if len(m.habits) == 0 {
		b.WriteString(m.styles.Help.Render("No habits. Tab here and press 'a'."))
	}

	today := model.Today(m.opts.Now())
	for i, h := range m.habits {
		cursor := "  "
		lineStyle := m.styles.Item
		if i == m.habitCursor && m.pane == PaneHabits {
			cursor = "❯ "
			lineStyle = m.styles.ItemSelected
		}
		mark := " "
		if h.DoneOn(today) {
			mark = "✓"
		}
		name := truncate(h.Name, max(width-18, 6))
		b.WriteString(lineStyle.Render(fmt.Sprintf("%s%s %s", cursor, mark, name)) +
			m.styles.Help.Render(fmt.Sprintf("  🔥 %d", h.Streak)) + "\n")
	}

	return style.Width(width - 2).Height(m.height - 6).Render(b.String())
}

func (m Model) renderStatusBar() string {
	if m.mode == ModeFilter {
		return m.styles.StatusBar.Width(m.width).Render("/" + m.input.View())
	}

	left := "a:add  x:done  d:del  u:undo  /:search  s:stats  t:theme  ?:help  q:quit"
	if m.undoVisible() {
		left = m.styles.Toast.Render("Task deleted, press u to undo")
	} else if m.message != "" {
		left = m.message
	}

	right := m.syncStatus()
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.styles.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// syncStatus shows connectivity, identity and the latest warning.
func (m Model) syncStatus() string {
	var parts []string

	if m.opts.Online != nil {
		if m.opts.Online() {
			parts = append(parts, m.styles.Online.Render("● online"))
		} else {
			parts = append(parts, m.styles.Offline.Render("○ offline"))
		}
	}

	if m.opts.Identity != nil {
		if _, ok := m.opts.Identity(); ok {
			parts = append(parts, m.styles.Online.Render("cloud"))
		} else {
			parts = append(parts, m.styles.Offline.Render("local only"))
		}
	}

	if entry, ok := m.opts.Diagnostics.Last(); ok && m.opts.Now().Sub(entry.Time) < warningTTL {
		parts = append(parts, m.styles.Warn.Render(truncate(entry.Message, 32)))
	}

	return strings.Join(parts, "  ")
}

func (m Model) renderModal() string {
	title := "Add Task"
	hint := "@date  #category  !low|!medium|!high"
	if m.mode == ModeAddHabit {
		title = "Add Habit"
		hint = ""
	}

	content := lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"
	content += m.input.View() + "\n\n"
	if hint != "" {
		content += m.styles.Help.Render(hint) + "\n"
	}
	content += m.styles.Help.Render("Enter:save  Esc:cancel")

	return m.styles.Modal.Render(content)
}

func (m Model) renderStats() string {
	stats := model.Summarize(m.todos)

	content := lipgloss.NewStyle().Bold(true).Render("Stats") + "\n\n"
	content += fmt.Sprintf("Total:    %d\n", stats.Total)
	content += fmt.Sprintf("Done:     %d\n", stats.Done)
	content += fmt.Sprintf("Pending:  %d\n\n", stats.Pending)
	content += progressBar(m.styles, stats, 30) + fmt.Sprintf(" %.0f%%\n\n", stats.Progress()*100)
	content += m.styles.Help.Render("any key to close")

	return m.styles.Modal.Render(content)
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("Keys") + "\n\n")
	for _, binding := range helpBindings {
		h := binding.Help()
		b.WriteString(fmt.Sprintf("  %-10s %s\n", h.Key, h.Desc))
	}
	b.WriteString("\n" + m.styles.Help.Render("any key to close"))
	return m.styles.Pane.Width(m.width - 2).Height(m.height - 6).Render(b.String())
}
