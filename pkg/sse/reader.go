// Package sse decodes a text/event-stream body into events.
package sse

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// DefaultEventType is the type of an event that carried no "event:" field.
const DefaultEventType = "message"

// Event is one dispatched block. ID is the last id seen so far on the stream, not only in
// this block. retry fields are ignored; reconnect timing belongs to the caller.
type Event struct {
	Type string
	ID   string
	Data string
}

// Reader yields one Event per blank-line-terminated block that carried at least one data line.
type Reader struct {
	scanner *bufio.Scanner
	lastID  string
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// LastEventID is the most recent id field seen, which persists across events as in the browser EventSource.
func (r *Reader) LastEventID() string { return r.lastID }

// Next blocks until an event is complete. It returns io.EOF when the stream ends cleanly;
// a partially received event at EOF is discarded.
func (r *Reader) Next() (Event, error) {
	var (
		data    []string
		hasData bool
		ev      Event
	)

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if !hasData {
				ev = Event{}
				continue
			}
			ev.Data = strings.Join(data, "\n")
			ev.ID = r.lastID
			if ev.Type == "" {
				ev.Type = DefaultEventType
			}
			return ev, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, errors.Wrap(err, "read event stream")
	}
	return Event{}, io.EOF
}
