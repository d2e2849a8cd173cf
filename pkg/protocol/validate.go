package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// DecodeStep parses one event payload into a TrainingStep.
// The payload must be a JSON object with an id and a known status; details, if present, must be an object or null.
func DecodeStep(data []byte) (TrainingStep, error) {
	var w wireStep
	if err := json.Unmarshal(data, &w); err != nil {
		return TrainingStep{}, errors.Wrap(err, ErrInvalidJSON)
	}
	if w.ID == nil {
		return TrainingStep{}, errors.Errorf("%s: payload has no id", ErrMissingID)
	}
	if !w.Status.Valid() {
		return TrainingStep{}, errors.Errorf("%s: %q", ErrUnknownStatus, w.Status)
	}

	step := TrainingStep{ID: *w.ID, Name: w.Name, Status: w.Status}
	raw := bytes.TrimSpace(w.Details)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &step.Details); err != nil {
			return TrainingStep{}, errors.Wrap(err, ErrInvalidDetails)
		}
	}
	return step, nil
}

func ValidateStep(s TrainingStep) error {
	if !s.Status.Valid() {
		return errors.Errorf("%s: %q", ErrUnknownStatus, s.Status)
	}
	return nil
}
