package tui

import (
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/trainmon/pkg/monitor"
	"github.com/rs/zerolog/log"
)

// BusNotifier publishes every session change on TopicSessionEvents.
// Snapshot is read at notification time, so it reflects the change being reported.
type BusNotifier struct {
	Pub      message.Publisher
	Snapshot func() monitor.Snapshot

	seq atomic.Uint64
}

var _ monitor.Notifier = (*BusNotifier)(nil)

func (n *BusNotifier) Notify(c monitor.Change) {
	ev := SessionChanged{Seq: n.seq.Add(1), Kind: c.Kind, At: c.At}
	if n.Snapshot != nil {
		ev.Snapshot = n.Snapshot()
	}
	if err := publishEnvelope(n.Pub, TopicSessionEvents, DomainTypeSessionChanged, ev); err != nil {
		log.Warn().Err(err).Str("kind", string(c.Kind)).Msg("publish session change")
	}
}
