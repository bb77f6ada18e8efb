package model

import (
	"fmt"
	"strings"
)

// HabitItem is a daily habit with its running streak.
type HabitItem struct {
	Name     string  `json:"name"`
	Streak   int     `json:"streak"`
	LastDone *string `json:"lastDone"`
}

// DoneOn reports whether the habit was already marked on day.
func (h HabitItem) DoneOn(day string) bool {
	return h.LastDone != nil && *h.LastDone == day
}

// CloneHabits copies habits including their LastDone pointers.
func CloneHabits(habits []HabitItem) []HabitItem {
	out := make([]HabitItem, len(habits))
	for i, h := range habits {
		out[i] = h
		if h.LastDone != nil {
			d := *h.LastDone
			out[i].LastDone = &d
		}
	}
	return out
}

// AddHabit appends a habit with a zero streak.
func AddHabit(habits []HabitItem, name string) ([]HabitItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return habits, fmt.Errorf("%w: empty habit name", ErrInvalid)
	}
	return append(CloneHabits(habits), HabitItem{Name: name}), nil
}

// MarkHabitDone increments the streak at index i unless it was already
// marked today. The second return value reports whether anything changed.
func MarkHabitDone(habits []HabitItem, i int, today string) ([]HabitItem, bool, error) {
	if i < 0 || i >= len(habits) {
		return habits, false, fmt.Errorf("habit %d: %w", i, ErrNotFound)
	}
	if habits[i].DoneOn(today) {
		return habits, false, nil
	}
	out := CloneHabits(habits)
	out[i].Streak++
	day := today
	out[i].LastDone = &day
	return out, true, nil
}

// DeleteHabit removes the habit at index i.
func DeleteHabit(habits []HabitItem, i int) ([]HabitItem, error) {
	if i < 0 || i >= len(habits) {
		return habits, fmt.Errorf("habit %d: %w", i, ErrNotFound)
	}
	out := make([]HabitItem, 0, len(habits)-1)
	out = append(out, CloneHabits(habits[:i])...)
	out = append(out, CloneHabits(habits[i+1:])...)
	return out, nil
}
