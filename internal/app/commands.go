package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
)

// TodoInput is what the user supplies for a new todo.
type TodoInput struct {
	Text     string
	Date     string
	Category string
	Priority string
}

// AddTodo appends a new todo and saves.
func (e *Engine) AddTodo(ctx context.Context, in TodoInput) (model.TodoItem, SaveResult, error) {
	item := model.NewTodo(in.Text, in.Date, in.Category, in.Priority)
	if err := item.Validate(); err != nil {
		return model.TodoItem{}, SaveResult{}, err
	}

	e.ensureNotifAsked()

	res, err := e.mutateTodos(ctx, func(todos []model.TodoItem) ([]model.TodoItem, error) {
		return model.AddTodo(todos, item)
	})
	if err != nil {
		return model.TodoItem{}, SaveResult{}, err
	}
	return item, res, nil
}

// ensureNotifAsked records that overdue notifications were enabled. A
// terminal needs no permission prompt, so the first add grants it.
func (e *Engine) ensureNotifAsked() {
	if e.store.NotifAsked() {
		return
	}
	if err := e.store.SetNotifAsked(true); err != nil {
		logger.Warn("Failed to record notification permission", logger.F("error", err))
	}
}

// Toggle flips the done flag of id and saves.
func (e *Engine) Toggle(ctx context.Context, id string) (SaveResult, error) {
	return e.mutateTodos(ctx, func(todos []model.TodoItem) ([]model.TodoItem, error) {
		return model.ApplyToggle(todos, id)
	})
}

// Delete removes id, remembers it for Undo and saves. The undo record is in
// place before the push starts, so Undo works while the push is in flight.
func (e *Engine) Delete(ctx context.Context, id string) (model.DeletedTodo, SaveResult, error) {
	var deleted model.DeletedTodo
	res, err := e.mutateTodosThen(ctx, func(todos []model.TodoItem) ([]model.TodoItem, error) {
		next, d, err := model.ApplyDelete(todos, id, e.now())
		if err != nil {
			return nil, err
		}
		deleted = d
		return next, nil
	}, func() {
		e.lastDeleted = &deleted
		if err := e.store.SaveLastDeleted(deleted); err != nil {
			logger.Warn("Failed to persist undo record", logger.F("error", err))
		}
	})
	if err != nil {
		return model.DeletedTodo{}, SaveResult{}, err
	}
	return deleted, res, nil
}

// Undo reinstates the last deleted todo at its original position if the
// undo window is still open.
func (e *Engine) Undo(ctx context.Context) (model.TodoItem, SaveResult, error) {
	var restored model.TodoItem
	res, err := e.mutateTodosThen(ctx, func(todos []model.TodoItem) ([]model.TodoItem, error) {
		if e.lastDeleted == nil {
			return nil, model.ErrNothingToUndo
		}
		next, err := model.ApplyUndo(todos, *e.lastDeleted, e.now())
		if err != nil {
			if errors.Is(err, model.ErrUndoExpired) {
				e.forgetDeleted()
			}
			return nil, err
		}
		restored = e.lastDeleted.Item
		return next, nil
	}, e.forgetDeleted)
	if err != nil {
		return model.TodoItem{}, SaveResult{}, err
	}
	return restored, res, nil
}

// forgetDeleted drops the undo record. e.mu must be held.
func (e *Engine) forgetDeleted() {
	e.lastDeleted = nil
	if err := e.store.ClearLastDeleted(); err != nil {
		logger.Warn("Failed to clear undo record", logger.F("error", err))
	}
}

// Reorder moves id to index and saves.
func (e *Engine) Reorder(ctx context.Context, id string, index int) (SaveResult, error) {
	return e.mutateTodos(ctx, func(todos []model.TodoItem) ([]model.TodoItem, error) {
		return model.ApplyReorder(todos, id, index)
	})
}

// CheckOverdue marks overdue todos as notified, persists them locally and
// notifies once per todo. Nothing fires until notifications are enabled.
func (e *Engine) CheckOverdue() ([]model.TodoItem, error) {
	if !e.store.NotifAsked() {
		return nil, nil
	}

	e.mu.Lock()
	next, fired := model.MarkOverdue(e.todos, model.Today(e.now()))
	if len(fired) == 0 {
		e.mu.Unlock()
		return nil, nil
	}
	if err := e.store.SaveTodos(next); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("save notified todos: %w", err)
	}
	e.setTodos(next)
	e.mu.Unlock()

	if e.notify != nil {
		for _, item := range fired {
			e.notify(item)
		}
	}
	return fired, nil
}

// Habits are saved locally only.

func (e *Engine) mutateHabits(fn func([]model.HabitItem) ([]model.HabitItem, error)) error {
	e.mu.Lock()
	next, err := fn(e.habits)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.store.SaveHabits(next); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("save habits locally: %w", err)
	}
	e.habits = next
	e.mu.Unlock()

	e.emit()
	return nil
}

// AddHabit appends a habit with a zero streak.
func (e *Engine) AddHabit(name string) error {
	return e.mutateHabits(func(habits []model.HabitItem) ([]model.HabitItem, error) {
		return model.AddHabit(habits, name)
	})
}

// MarkHabitDone increments the streak of habit i unless it was already
// done today. It reports whether the streak changed.
func (e *Engine) MarkHabitDone(i int) (bool, error) {
	changed := false
	err := e.mutateHabits(func(habits []model.HabitItem) ([]model.HabitItem, error) {
		next, ok, err := model.MarkHabitDone(habits, i, model.Today(e.now()))
		changed = ok
		return next, err
	})
	return changed, err
}

// DeleteHabit removes habit i.
func (e *Engine) DeleteHabit(i int) error {
	return e.mutateHabits(func(habits []model.HabitItem) ([]model.HabitItem, error) {
		return model.DeleteHabit(habits, i)
	})
}
