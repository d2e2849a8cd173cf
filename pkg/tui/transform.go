package tui

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

func RegisterDomainToUITransformer(bus *Bus) {
	bus.AddHandler("trainmon-domain-to-ui", TopicSessionEvents, func(msg *message.Message) error {
		defer msg.Ack()

		var env Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return errors.Wrap(err, "unmarshal domain envelope")
		}

		publishUI := func(uiType string, payload any) error {
			return publishEnvelope(bus.Publisher, TopicUIMessages, uiType, payload)
		}

		switch env.Type {
		case DomainTypeSessionChanged:
			var ev SessionChanged
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return errors.Wrap(err, "unmarshal session change")
			}
			return publishUI(UITypeSessionSnapshot, ev)
		case DomainTypeActionLog:
			var ev ActionLog
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return errors.Wrap(err, "unmarshal action log")
			}
			return publishUI(UITypeNotice, ev)
		default:
			return nil
		}
	})
}
