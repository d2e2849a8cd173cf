package protocol

import "encoding/json"

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepProcessing, StepCompleted, StepError:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is expected for a step in this status.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepError
}

// TrainingStep is one stage of a training run, e.g. fitting one candidate model.
// Details is kept opaque.
type TrainingStep struct {
	ID      int            `json:"id"`
	Name    string         `json:"name"`
	Status  StepStatus     `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// wireStep mirrors TrainingStep with pointer fields so absent keys can be told apart from zero values.
type wireStep struct {
	ID      *int            `json:"id"`
	Name    string          `json:"name"`
	Status  StepStatus      `json:"status"`
	Details json.RawMessage `json:"details,omitempty"`
}
