package tui

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// Controller is the part of monitor.Session the UI may drive.
type Controller interface {
	SetTraining(on bool)
	Training() bool
	Download(ctx context.Context) bool
}

// RegisterUIActionRunner executes UI action requests against the session. Outcomes reach the UI
// through the session's own log; only malformed or unknown requests produce a notice.
func RegisterUIActionRunner(bus *Bus, ctrl Controller) {
	bus.AddHandler("trainmon-ui-actions", TopicUIActions, func(msg *message.Message) error {
		defer msg.Ack()

		var env Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			_ = publishActionLog(bus.Publisher, "action: bad envelope (unmarshal failed)")
			return nil
		}
		if env.Type != UITypeActionRequest {
			return nil
		}

		var req ActionRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			_ = publishActionLog(bus.Publisher, "action: bad request (unmarshal failed)")
			return nil
		}

		ctx := msg.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		log.Debug().Str("action", string(req.Kind)).Msg("ui action")
		switch req.Kind {
		case ActionToggleTraining:
			ctrl.SetTraining(!ctrl.Training())
		case ActionStartTraining:
			ctrl.SetTraining(true)
		case ActionStopTraining:
			ctrl.SetTraining(false)
		case ActionDownload:
			ctrl.Download(ctx)
		default:
			_ = publishActionLog(bus.Publisher, "action: unknown kind "+string(req.Kind))
		}
		return nil
	})
}

func publishActionLog(pub message.Publisher, text string) error {
	return publishEnvelope(pub, TopicSessionEvents, DomainTypeActionLog, ActionLog{At: time.Now(), Text: text})
}
