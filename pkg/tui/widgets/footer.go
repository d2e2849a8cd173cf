package widgets

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trainmon/pkg/tui/styles"
)

// Footer renders the keybindings bar with an optional notice line above it.
type Footer struct {
	Keybinds []Keybind
	Notice   string
	Width    int
	theme    styles.Theme
}

func NewFooter(keybinds []Keybind) Footer {
	return Footer{
		Keybinds: keybinds,
		theme:    styles.DefaultTheme(),
	}
}

func (f Footer) WithWidth(w int) Footer {
	f.Width = w
	return f
}

func (f Footer) WithNotice(text string) Footer {
	f.Notice = text
	return f
}

func (f Footer) Render() string {
	theme := f.theme

	keybindsLine := RenderKeybinds(f.Keybinds, theme)
	padding := (f.Width - lipgloss.Width(keybindsLine)) / 2
	if padding < 0 {
		padding = 0
	}
	paddedKeybinds := lipgloss.NewStyle().
		PaddingLeft(padding).
		Width(f.Width).
		Render(keybindsLine)

	lines := []string{Separator(f.Width, theme)}
	if f.Notice != "" {
		lines = append(lines, theme.LogWarning.Render(styles.IconWarning+" "+f.Notice))
	}
	lines = append(lines, paddedKeybinds)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
