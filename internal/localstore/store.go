// Package localstore is the durable key/value store the application reads
// from on every render. Each key holds one full JSON value; saves replace
// the whole value.
package localstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/ironhabit/internal/db"
	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
)

// Keys used by the application.
const (
	KeyTodos      = "todos"
	KeyHabits     = "habits"
	KeyTheme      = "theme"
	KeyNotifAsked = "notifAsked"
	KeyIdentity   = "identity"

	// KeyLastDeleted holds the pending undo so it survives between CLI runs.
	KeyLastDeleted = "lastDeleted"
)

// Themes
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Store persists JSON values in the kv table.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// New creates a Store on an opened database.
func New(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Load decodes the value stored under key into v. It reports false when the
// key is missing or the stored value cannot be decoded; v is left untouched
// in that case.
func (s *Store) Load(key string, v interface{}) bool {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		logger.Warn("Local load failed", logger.F("key", key), logger.F("error", err))
		return false
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		logger.Warn("Discarding malformed local value", logger.F("key", key), logger.F("error", err))
		return false
	}
	return true
}

// Save replaces the value stored under key.
func (s *Store) Save(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.SaveRaw(key, data)
}

// SaveRaw stores data verbatim. It exists so callers can write values that
// were produced elsewhere (imports, tests of malformed data).
func (s *Store) SaveRaw(key string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// LoadTodos returns the stored todo list, or an empty list.
func (s *Store) LoadTodos() []model.TodoItem {
	var todos []model.TodoItem
	if !s.Load(KeyTodos, &todos) || todos == nil {
		return []model.TodoItem{}
	}
	return todos
}

// SaveTodos replaces the stored todo list.
func (s *Store) SaveTodos(todos []model.TodoItem) error {
	if todos == nil {
		todos = []model.TodoItem{}
	}
	return s.Save(KeyTodos, todos)
}

// LoadHabits returns the stored habit list, or an empty list.
func (s *Store) LoadHabits() []model.HabitItem {
	var habits []model.HabitItem
	if !s.Load(KeyHabits, &habits) || habits == nil {
		return []model.HabitItem{}
	}
	return habits
}

// SaveHabits replaces the stored habit list.
func (s *Store) SaveHabits(habits []model.HabitItem) error {
	if habits == nil {
		habits = []model.HabitItem{}
	}
	return s.Save(KeyHabits, habits)
}

// Theme returns the stored theme, light by default.
func (s *Store) Theme() string {
	var theme string
	if !s.Load(KeyTheme, &theme) || theme != ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// SetTheme stores the theme.
func (s *Store) SetTheme(theme string) error {
	if theme != ThemeDark && theme != ThemeLight {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return s.Save(KeyTheme, theme)
}

// NotifAsked reports whether overdue notifications were already enabled.
func (s *Store) NotifAsked() bool {
	var asked bool
	return s.Load(KeyNotifAsked, &asked) && asked
}

// SetNotifAsked records that overdue notifications were enabled.
func (s *Store) SetNotifAsked(asked bool) error {
	return s.Save(KeyNotifAsked, asked)
}

// LoadIdentity returns the identity established on an earlier run.
func (s *Store) LoadIdentity() (model.Identity, bool) {
	var id model.Identity
	if !s.Load(KeyIdentity, &id) || !id.Valid() {
		return model.Identity{}, false
	}
	return id, true
}

// SaveIdentity persists the identity for later sessions.
func (s *Store) SaveIdentity(id model.Identity) error {
	return s.Save(KeyIdentity, id)
}

// LoadLastDeleted returns the most recent deletion that may still be undone.
func (s *Store) LoadLastDeleted() (model.DeletedTodo, bool) {
	var d model.DeletedTodo
	if !s.Load(KeyLastDeleted, &d) || d.Item.ID == "" {
		return model.DeletedTodo{}, false
	}
	return d, true
}

// SaveLastDeleted records d as the pending undo.
func (s *Store) SaveLastDeleted(d model.DeletedTodo) error {
	return s.Save(KeyLastDeleted, d)
}

// ClearLastDeleted drops the pending undo.
func (s *Store) ClearLastDeleted() error {
	return s.Delete(KeyLastDeleted)
}
