package tui

import (
	"time"

	"github.com/go-go-golems/trainmon/pkg/monitor"
)

// SessionChanged carries one session mutation together with the full state after it.
// Seq increases with every change so consumers can drop stale deliveries.
type SessionChanged struct {
	Seq      uint64             `json:"seq"`
	Kind     monitor.ChangeKind `json:"kind"`
	At       time.Time          `json:"at"`
	Snapshot monitor.Snapshot   `json:"snapshot"`
}

type ActionLog struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}
