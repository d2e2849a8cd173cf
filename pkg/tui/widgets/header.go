package widgets

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trainmon/pkg/tui/styles"
)

// Keybind is one footer hint.
type Keybind struct {
	Key   string
	Label string
}

// Header is the top bar: app name, stream connection on the left, elapsed time on the right.
type Header struct {
	Title     string
	Icon      string
	Status    string
	Connected bool
	Elapsed   time.Duration
	Width     int
	theme     styles.Theme
}

func NewHeader(title string) Header {
	return Header{Title: title, theme: styles.DefaultTheme()}
}

// WithStatus sets the connection label; connected picks the live color.
func (h Header) WithStatus(icon, status string, connected bool) Header {
	h.Icon = icon
	h.Status = status
	h.Connected = connected
	return h
}

func (h Header) WithElapsed(d time.Duration) Header {
	h.Elapsed = d
	return h
}

func (h Header) WithWidth(w int) Header {
	h.Width = w
	return h
}

func (h Header) Render() string {
	t := h.theme

	left := t.Banner.Render(h.Title)
	if h.Status != "" {
		icon := h.Icon
		if icon == "" {
			icon = styles.IconOffline
		}
		left += "  " + t.Connection(h.Connected).Render(icon) + " " + lipgloss.NewStyle().Foreground(t.Text).Render(h.Status)
	}

	right := ""
	if h.Elapsed > 0 {
		right = t.Dim.Render("Elapsed: " + FormatDuration(h.Elapsed))
	}

	gap := max(1, h.Width-lipgloss.Width(left)-lipgloss.Width(right))
	line := left + strings.Repeat(" ", gap) + right
	return lipgloss.JoinVertical(lipgloss.Left, line, Separator(h.Width, t))
}

// RenderKeybinds renders hints as "[key] label" pairs.
func RenderKeybinds(keybinds []Keybind, t styles.Theme) string {
	parts := make([]string, 0, len(keybinds))
	for _, kb := range keybinds {
		parts = append(parts, t.KeyName.Render("["+kb.Key+"]")+t.KeyHint.Render(" "+kb.Label))
	}
	return strings.Join(parts, " ")
}

// Separator renders a full-width rule; width <= 0 falls back to 80 columns.
func Separator(width int, t styles.Theme) string {
	if width <= 0 {
		width = 80
	}
	return lipgloss.NewStyle().Foreground(t.Frame).Render(strings.Repeat("━", width))
}

// FormatDuration prints "1h 2m 3s", dropping leading zero units.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
