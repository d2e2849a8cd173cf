package widgets

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trainmon/pkg/tui/styles"
)

// Box is a rounded pane with a heading row: title on the left, hint or state on the right.
type Box struct {
	Title   string
	Hint    string
	Content string
	Width   int
	Height  int
	Focused bool
	theme   styles.Theme
}

func NewBox(title string) Box {
	return Box{Title: title, theme: styles.DefaultTheme()}
}

func (b Box) WithContent(content string) Box {
	b.Content = content
	return b
}

// WithTitleRight sets the right side of the heading row.
func (b Box) WithTitleRight(text string) Box {
	b.Hint = text
	return b
}

// WithSize sets outer dimensions; zero leaves that axis to the content.
func (b Box) WithSize(width, height int) Box {
	b.Width = width
	b.Height = height
	return b
}

// WithFocus marks the pane that receives scroll keys.
func (b Box) WithFocus(focused bool) Box {
	b.Focused = focused
	return b
}

func (b Box) Render() string {
	inner := max(0, b.Width-2)

	body := b.Content
	heading := b.heading(inner)
	if heading != "" {
		body = heading + "\n" + body
	}

	style := b.theme.Pane
	if b.Focused {
		style = b.theme.PaneFocused
	}
	if b.Width > 0 {
		style = style.Width(inner)
	}
	if b.Height > 0 {
		rows := b.Height - 2
		if heading != "" {
			rows--
		}
		style = style.Height(max(0, rows))
	}
	return style.Render(body)
}

func (b Box) heading(width int) string {
	if b.Title == "" && b.Hint == "" {
		return ""
	}
	left := ""
	if b.Title != "" {
		left = b.theme.Heading.Render(b.Title)
	}
	right := ""
	if b.Hint != "" {
		right = b.theme.Dim.Render(b.Hint)
	}
	gap := max(1, width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + lipgloss.NewStyle().Width(gap).Render("") + right
}
