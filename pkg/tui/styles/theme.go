package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trainmon/pkg/protocol"
)

// Palette holds the raw colors; Theme derives every style from it.
type Palette struct {
	Accent  lipgloss.Color
	Info    lipgloss.Color
	Good    lipgloss.Color
	Warn    lipgloss.Color
	Bad     lipgloss.Color
	Frame   lipgloss.Color
	Text    lipgloss.Color
	Subtext lipgloss.Color
}

var DefaultPalette = Palette{
	Accent:  lipgloss.Color("#7C3AED"),
	Info:    lipgloss.Color("#06B6D4"),
	Good:    lipgloss.Color("#22C55E"),
	Warn:    lipgloss.Color("#EAB308"),
	Bad:     lipgloss.Color("#EF4444"),
	Frame:   lipgloss.Color("#6B7280"),
	Text:    lipgloss.Color("#F9FAFB"),
	Subtext: lipgloss.Color("#9CA3AF"),
}

// Theme is the style set for the monitor screens: panes, step rows, connection and log lines.
type Theme struct {
	Palette

	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	Heading     lipgloss.Style
	Dim         lipgloss.Style
	KeyHint     lipgloss.Style
	KeyName     lipgloss.Style
	Banner      lipgloss.Style

	StepCompleted  lipgloss.Style
	StepProcessing lipgloss.Style
	StepFailed     lipgloss.Style
	StepPending    lipgloss.Style

	LogWarning lipgloss.Style
}

func NewTheme(p Palette) Theme {
	pane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Frame)

	return Theme{
		Palette:     p,
		Pane:        pane,
		PaneFocused: pane.BorderForeground(p.Accent),
		Heading:     lipgloss.NewStyle().Bold(true).Foreground(p.Text),
		Dim:         lipgloss.NewStyle().Foreground(p.Subtext),
		KeyHint:     lipgloss.NewStyle().Foreground(p.Subtext),
		KeyName:     lipgloss.NewStyle().Bold(true).Foreground(p.Info),
		Banner:      lipgloss.NewStyle().Bold(true).Foreground(p.Text).Background(p.Accent).Padding(0, 1),

		StepCompleted:  lipgloss.NewStyle().Foreground(p.Good),
		StepProcessing: lipgloss.NewStyle().Foreground(p.Info),
		StepFailed:     lipgloss.NewStyle().Foreground(p.Bad),
		StepPending:    lipgloss.NewStyle().Foreground(p.Frame),

		LogWarning: lipgloss.NewStyle().Foreground(p.Warn),
	}
}

func DefaultTheme() Theme {
	return NewTheme(DefaultPalette)
}

// Step returns the style for a step status. Unknown statuses render as pending.
func (t Theme) Step(status protocol.StepStatus) lipgloss.Style {
	switch status {
	case protocol.StepCompleted:
		return t.StepCompleted
	case protocol.StepProcessing:
		return t.StepProcessing
	case protocol.StepError:
		return t.StepFailed
	default:
		return t.StepPending
	}
}

// Connection colors the header status: green only while the stream is live.
func (t Theme) Connection(connected bool) lipgloss.Style {
	if connected {
		return t.StepCompleted
	}
	return t.StepFailed
}
