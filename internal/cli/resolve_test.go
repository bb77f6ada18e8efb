package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/ironhabit/internal/model"
)

func TestResolveTodo(t *testing.T) {
	todos := []model.TodoItem{
		{ID: "3f2a0000-aaaa", Text: "milk"},
		{ID: "3f2b0000-bbbb", Text: "bread"},
		{ID: "9c000000-cccc", Text: "eggs"},
	}

	got, err := resolveTodo(todos, "2")
	require.NoError(t, err)
	assert.Equal(t, "bread", got.Text)

	got, err = resolveTodo(todos, "9c")
	require.NoError(t, err)
	assert.Equal(t, "eggs", got.Text)

	_, err = resolveTodo(todos, "3f")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveTodo(todos, "zz")
	assert.ErrorContains(t, err, "not found")
}

func TestResolveHabit(t *testing.T) {
	habits := []model.HabitItem{{Name: "Read"}, {Name: "Run"}}

	i, err := resolveHabit(habits, "2")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	i, err = resolveHabit(habits, "read")
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = resolveHabit(habits, "3")
	assert.Error(t, err)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "3f2a0000", shortID("3f2a0000-aaaa"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestUndoHint_CountsTimeSpentPushing(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	d := model.DeletedTodo{Item: model.TodoItem{ID: "a"}, DeletedAt: at}

	assert.Equal(t, "Run 'ironhabit undo' within 4s to restore it.", undoHint(d, at))
	assert.Equal(t, "Run 'ironhabit undo' within 2.5s to restore it.", undoHint(d, at.Add(1500*time.Millisecond)))
	assert.Equal(t, "The undo window has passed.", undoHint(d, at.Add(model.UndoWindow+time.Second)))
}
