package widgets

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trainmon/pkg/protocol"
	"github.com/go-go-golems/trainmon/pkg/tui/styles"
)

// StepRow is one line of the steps table. Details is already flattened to text.
type StepRow struct {
	ID      int
	Name    string
	Status  protocol.StepStatus
	Details string
}

// StepTable lays out steps in id, model, status and details columns. The details column takes
// whatever width is left.
type StepTable struct {
	Rows  []StepRow
	Width int
	theme styles.Theme
}

const (
	idWidth     = 5
	nameWidth   = 22
	statusWidth = 12
	iconWidth   = 2
	minDetails  = 10
)

func NewStepTable(rows []StepRow) StepTable {
	return StepTable{Rows: rows, theme: styles.DefaultTheme()}
}

func (t StepTable) WithWidth(w int) StepTable {
	t.Width = w
	return t
}

func (t StepTable) Render() string {
	if len(t.Rows) == 0 {
		return t.theme.Dim.Render("(no steps yet)")
	}
	details := max(minDetails, t.Width-iconWidth-idWidth-1-nameWidth-statusWidth)

	head := t.theme.Dim.Bold(true)
	lines := []string{strings.Repeat(" ", iconWidth) +
		head.Width(idWidth).Align(lipgloss.Right).Render("ID") + " " +
		head.Width(nameWidth).Render("Model") +
		head.Width(statusWidth).Render("Status") +
		head.Width(details).Render("Details")}

	cell := lipgloss.NewStyle().Foreground(t.theme.Subtext)
	for _, r := range t.Rows {
		status := t.theme.Step(r.Status)
		lines = append(lines, status.Render(styles.StepIcon(r.Status))+" "+
			cell.Width(idWidth).Align(lipgloss.Right).Render(strconv.Itoa(r.ID))+" "+
			cell.Width(nameWidth).Render(truncate(r.Name, nameWidth))+
			status.Width(statusWidth).Render(string(r.Status))+
			cell.Width(details).Render(truncate(r.Details, details)))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
