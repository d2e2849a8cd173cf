package tui

import (
	"time"

	"github.com/go-go-golems/trainmon/pkg/monitor"
)

type SessionSnapshotMsg struct {
	Seq      uint64
	Kind     monitor.ChangeKind
	Snapshot monitor.Snapshot
}

// NoticeMsg is a transient status line that is not part of the session log.
type NoticeMsg struct {
	At   time.Time
	Text string
}
