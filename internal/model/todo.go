package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format used for due dates and habit days.
const DateLayout = "2006-01-02"

// UndoWindow is how long a deleted todo can be reinstated.
const UndoWindow = 4 * time.Second

// Priority levels for todos
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DefaultCategory is used when a todo is added without one.
const DefaultCategory = "general"

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateID   = errors.New("duplicate id")
	ErrInvalid       = errors.New("invalid item")
	ErrUndoExpired   = errors.New("undo window expired")
	ErrNothingToUndo = errors.New("nothing to undo")
)

// TodoItem is a single to-do entry. Field names match the stored documents.
type TodoItem struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Done     bool   `json:"done"`
	Notified bool   `json:"notified"`
}

// NewTodo creates a todo with a fresh id. text is trimmed.
func NewTodo(text, date, category, priority string) TodoItem {
	if category == "" {
		category = DefaultCategory
	}
	if priority == "" {
		priority = PriorityLow
	}
	return TodoItem{
		ID:       uuid.NewString(),
		Text:     strings.TrimSpace(text),
		Date:     date,
		Category: category,
		Priority: priority,
	}
}

// Validate checks the fields a todo must carry before it is stored.
func (t TodoItem) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalid)
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: empty text", ErrInvalid)
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalid, t.Date)
	}
	switch t.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("%w: priority %q", ErrInvalid, t.Priority)
	}
	return nil
}

// IsOverdue reports whether the todo is open and due before today.
func (t TodoItem) IsOverdue(today string) bool {
	return !t.Done && t.Date != "" && t.Date < today
}

// DeletedTodo remembers a deletion so it can be undone.
type DeletedTodo struct {
	Item      TodoItem  `json:"item"`
	Index     int       `json:"index"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Expired reports whether the undo window has passed at now.
func (d DeletedTodo) Expired(now time.Time) bool {
	return now.Sub(d.DeletedAt) > UndoWindow
}

// ParsePriority maps h/m/l, full names and 1-3 to a priority level.
// Unknown input is low.
func ParsePriority(s string) string {
	switch strings.ToLower(s) {
	case "h", "high", "1":
		return PriorityHigh
	case "m", "med", "medium", "2":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Today returns now as a calendar date in local time.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// IndexOf returns the position of id, or -1.
func IndexOf(todos []TodoItem, id string) int {
	for i, t := range todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Clone copies todos so callers can mutate the result freely.
func Clone(todos []TodoItem) []TodoItem {
	if todos == nil {
		return []TodoItem{}
	}
	out := make([]TodoItem, len(todos))
	copy(out, todos)
	return out
}

// AddTodo appends item after validating it and checking id uniqueness.
func AddTodo(todos []TodoItem, item TodoItem) ([]TodoItem, error) {
	item.Text = strings.TrimSpace(item.Text)
	if err := item.Validate(); err != nil {
		return todos, err
	}
	if IndexOf(todos, item.ID) >= 0 {
		return todos, fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
	}
	out := Clone(todos)
	return append(out, item), nil
}

// ApplyToggle flips the done flag of id.
func ApplyToggle(todos []TodoItem, id string) ([]TodoItem, error) {
	i := IndexOf(todos, id)
	if i < 0 {
		return todos, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	out := Clone(todos)
	out[i].Done = !out[i].Done
	return out, nil
}

// ApplyDelete removes id and returns the record needed to undo it.
func ApplyDelete(todos []TodoItem, id string, now time.Time) ([]TodoItem, DeletedTodo, error) {
	i := IndexOf(todos, id)
	if i < 0 {
		return todos, DeletedTodo{}, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	deleted := DeletedTodo{Item: todos[i], Index: i, DeletedAt: now}

	out := make([]TodoItem, 0, len(todos)-1)
	out = append(out, todos[:i]...)
	out = append(out, todos[i+1:]...)
	return out, deleted, nil
}

// ApplyUndo reinstates a deleted todo at its original index. The index is
// clamped when the list has shrunk since the deletion.
func ApplyUndo(todos []TodoItem, deleted DeletedTodo, now time.Time) ([]TodoItem, error) {
	if deleted.Item.ID == "" {
		return todos, ErrNothingToUndo
	}
	if deleted.Expired(now) {
		return todos, ErrUndoExpired
	}
	if IndexOf(todos, deleted.Item.ID) >= 0 {
		return todos, fmt.Errorf("%w: %s", ErrDuplicateID, deleted.Item.ID)
	}

	idx := deleted.Index
	if idx < 0 {
		idx = 0
	}
	if idx > len(todos) {
		idx = len(todos)
	}

	out := make([]TodoItem, 0, len(todos)+1)
	out = append(out, todos[:idx]...)
	out = append(out, deleted.Item)
	out = append(out, todos[idx:]...)
	return out, nil
}

// ApplyReorder moves id to newIndex, shifting the items in between.
func ApplyReorder(todos []TodoItem, id string, newIndex int) ([]TodoItem, error) {
	i := IndexOf(todos, id)
	if i < 0 {
		return todos, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	if newIndex < 0 || newIndex >= len(todos) {
		return todos, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalid, newIndex, len(todos))
	}

	item := todos[i]
	rest := make([]TodoItem, 0, len(todos)-1)
	rest = append(rest, todos[:i]...)
	rest = append(rest, todos[i+1:]...)

	out := make([]TodoItem, 0, len(todos))
	out = append(out, rest[:newIndex]...)
	out = append(out, item)
	out = append(out, rest[newIndex:]...)
	return out, nil
}

// ReconcilePull decides the local collection after a pull: a non-empty
// remote collection replaces local entirely, an empty one leaves it alone.
func ReconcilePull(local, remote []TodoItem) ([]TodoItem, bool) {
	if len(remote) == 0 {
		return local, false
	}
	return Clone(remote), true
}

// MarkOverdue sets Notified on overdue todos that have not been notified
// yet and returns them. Notified is never cleared.
func MarkOverdue(todos []TodoItem, today string) ([]TodoItem, []TodoItem) {
	var fired []TodoItem
	out := Clone(todos)
	for i := range out {
		if out[i].Notified || !out[i].IsOverdue(today) {
			continue
		}
		out[i].Notified = true
		fired = append(fired, out[i])
	}
	return out, fired
}

// Filter returns the todos whose text contains query, ignoring case.
func Filter(todos []TodoItem, query string) []TodoItem {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Clone(todos)
	}
	var out []TodoItem
	for _, t := range todos {
		if strings.Contains(strings.ToLower(t.Text), q) {
			out = append(out, t)
		}
	}
	return out
}

// Stats is the dashboard summary.
type Stats struct {
	Total   int
	Done    int
	Pending int
}

// Progress returns the done percentage, 0 for an empty list.
func (s Stats) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total) * 100
}

// Summarize counts total, done and pending todos.
func Summarize(todos []TodoItem) Stats {
	s := Stats{Total: len(todos)}
	for _, t := range todos {
		if t.Done {
			s.Done++
		}
	}
	s.Pending = s.Total - s.Done
	return s
}
