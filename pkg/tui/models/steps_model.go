package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/trainmon/pkg/protocol"
	"github.com/go-go-golems/trainmon/pkg/tui/widgets"
)

// StepsModel lists every known step in first-seen order.
type StepsModel struct {
	steps  []protocol.TrainingStep
	width  int
	height int
}

func NewStepsModel() StepsModel { return StepsModel{} }

func (m StepsModel) WithSteps(steps []protocol.TrainingStep) StepsModel {
	m.steps = steps
	return m
}

func (m StepsModel) WithSize(width, height int) StepsModel {
	m.width, m.height = width, height
	return m
}

func (m StepsModel) View() string {
	visible := m.steps
	if rows := m.height - 4; rows > 0 && len(visible) > rows {
		visible = visible[len(visible)-rows:]
	}
	rows := make([]widgets.StepRow, 0, len(visible))
	for _, s := range visible {
		rows = append(rows, widgets.StepRow{
			ID:      s.ID,
			Name:    s.Name,
			Status:  s.Status,
			Details: formatDetails(s.Details),
		})
	}

	return widgets.NewBox(fmt.Sprintf("Steps (%d)", len(m.steps))).
		WithContent(widgets.NewStepTable(rows).WithWidth(m.width-2).Render()).
		WithSize(m.width, 0).
		Render()
}

func formatDetails(d map[string]any) string {
	if len(d) == 0 {
		return ""
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "?"
	}
	return string(b)
}
