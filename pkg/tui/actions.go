package tui

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

type ActionKind string

const (
	ActionToggleTraining ActionKind = "toggle-training"
	ActionStartTraining  ActionKind = "start-training"
	ActionStopTraining   ActionKind = "stop-training"
	ActionDownload       ActionKind = "download"
)

type ActionRequest struct {
	Kind ActionKind `json:"kind"`
	At   time.Time  `json:"at"`
}

func PublishAction(pub message.Publisher, req ActionRequest) error {
	if req.Kind == "" {
		return errors.New("missing action kind")
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}
	return publishEnvelope(pub, TopicUIActions, UITypeActionRequest, req)
}
