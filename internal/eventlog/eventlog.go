package eventlog

import (
	"sync"
	"time"

	"sovereignctl/internal/model"
)

// DefaultCapacity is the number of entries kept by the dashboard log.
const DefaultCapacity = 50

// TimeLayout is the prefix format used by Lines.
const TimeLayout = "15:04:05"

// Log is a bounded, newest-first event log. It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	cap     int
	now     func() time.Time
	entries []model.LogEntry
}

// New returns a log holding at most capacity entries. A non-positive
// capacity uses DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{cap: capacity, now: time.Now, entries: make([]model.LogEntry, 0, capacity)}
}

// WithClock replaces the time source. Intended for tests.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
	return l
}

// Add prepends msg, dropping the oldest entry once the log is full.
func (l *Log) Add(msg string) model.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := model.LogEntry{Time: l.now(), Message: msg}
	if len(l.entries) < l.cap {
		l.entries = append(l.entries, model.LogEntry{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = e
	return e
}

// Entries returns a copy, newest first.
func (l *Log) Entries() []model.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Lines renders the entries as "[HH:MM:SS] message", newest first.
func (l *Log) Lines() []string {
	entries := l.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = Format(e)
	}
	return out
}

// Len returns the number of entries held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Format renders one entry.
func Format(e model.LogEntry) string {
	return "[" + e.Time.Format(TimeLayout) + "] " + e.Message
}
