package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/ironhabit/internal/app"
	"github.com/existflow/ironhabit/internal/model"
)

// truncate shortens a string to max runes with ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// progressBar renders done/total as a bar of width cells.
func progressBar(s Styles, stats model.Stats, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(stats.Progress() * float64(width))
	return s.ProgressFill.Render(strings.Repeat("█", filled)) +
		s.ProgressRest.Render(strings.Repeat("░", width-filled))
}

// parseQuickAdd reads "text @YYYY-MM-DD #category !priority". Tokens may
// appear anywhere; the date defaults to today.
func parseQuickAdd(line string, now time.Time) app.TodoInput {
	in := app.TodoInput{Date: model.Today(now)}

	var words []string
	for _, w := range strings.Fields(line) {
		switch {
		case len(w) > 1 && w[0] == '@':
			in.Date = model.ParseDay(w[1:], now)
		case len(w) > 1 && w[0] == '#':
			in.Category = w[1:]
		case len(w) > 1 && w[0] == '!':
			in.Priority = model.ParsePriority(w[1:])
		default:
			words = append(words, w)
		}
	}
	in.Text = strings.Join(words, " ")
	return in
}

// describeSave turns a save result into a status line.
func describeSave(verb string, res app.SaveResult) string {
	switch res.State {
	case app.StatePushSucceeded:
		return fmt.Sprintf("%s (synced %d)", verb, res.Pushed)
	case app.StatePushDeferred:
		return fmt.Sprintf("%s (sync deferred)", verb)
	default:
		return verb
	}
}
