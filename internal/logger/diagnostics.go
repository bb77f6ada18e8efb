package logger

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Entry is one warning or error kept for display.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// String renders the entry on a single line.
func (e Entry) String() string {
	return fmt.Sprintf("%s %s %s", e.Time.Format("15:04:05"), e.Level, e.Message)
}

// Diagnostics is a bounded ring of recent warnings and errors. Writers never
// block: the oldest entry is dropped once the ring is full.
type Diagnostics struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewDiagnostics creates a ring holding at most size entries.
func NewDiagnostics(size int) *Diagnostics {
	if size <= 0 {
		size = 1
	}
	return &Diagnostics{entries: make([]Entry, size)}
}

func (d *Diagnostics) record(level Level, msg string, fields []Field) {
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		msg = msg + " (" + strings.Join(parts, " ") + ")"
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[d.next] = Entry{Time: time.Now(), Level: level, Message: msg}
	d.next = (d.next + 1) % len(d.entries)
	if d.next == 0 {
		d.full = true
	}
}

// Recent returns up to n entries, newest last.
func (d *Diagnostics) Recent(n int) []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ordered []Entry
	if d.full {
		ordered = append(ordered, d.entries[d.next:]...)
	}
	ordered = append(ordered, d.entries[:d.next]...)

	if n > 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	out := make([]Entry, len(ordered))
	copy(out, ordered)
	return out
}

// Last returns the newest entry, if any.
func (d *Diagnostics) Last() (Entry, bool) {
	recent := d.Recent(1)
	if len(recent) == 0 {
		return Entry{}, false
	}
	return recent[0], true
}

// Reset drops every entry.
func (d *Diagnostics) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next = 0
	d.full = false
	for i := range d.entries {
		d.entries[i] = Entry{}
	}
}

// GlobalDiagnostics returns the ring shared by every logger in the process.
func GlobalDiagnostics() *Diagnostics {
	return globalDiag
}
