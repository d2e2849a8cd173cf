package tui

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

// Sender is the part of *tea.Program the forwarder needs.
type Sender interface {
	Send(msg tea.Msg)
}

func RegisterUIForwarder(bus *Bus, p Sender) {
	bus.AddHandler("trainmon-ui-forward", TopicUIMessages, func(msg *message.Message) error {
		defer msg.Ack()

		var env Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return errors.Wrap(err, "unmarshal ui envelope")
		}

		switch env.Type {
		case UITypeSessionSnapshot:
			var ev SessionChanged
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return errors.Wrap(err, "unmarshal snapshot payload")
			}
			p.Send(SessionSnapshotMsg{Seq: ev.Seq, Kind: ev.Kind, Snapshot: ev.Snapshot})
		case UITypeNotice:
			var ev ActionLog
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return errors.Wrap(err, "unmarshal notice payload")
			}
			p.Send(NoticeMsg{At: ev.At, Text: ev.Text})
		}
		return nil
	})
}
