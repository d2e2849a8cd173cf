package monitor

import (
	"fmt"
	"sync"
	"time"
)

type LogEntry struct {
	Seq  int       `json:"seq"`
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.At.Format("15:04:05"), e.Text)
}

// Log is append-only: entries are never mutated or removed once added.
type Log struct {
	mu      sync.RWMutex
	now     func() time.Time
	entries []LogEntry
}

func NewLog(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now}
}

func (l *Log) Append(message string) LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := LogEntry{Seq: len(l.entries) + 1, At: l.now(), Text: message}
	l.entries = append(l.entries, e)
	return e
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]LogEntry(nil), l.entries...)
}

func (l *Log) Lines() []string {
	entries := l.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.String())
	}
	return out
}
