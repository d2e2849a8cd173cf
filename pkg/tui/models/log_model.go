package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trainmon/pkg/monitor"
	"github.com/go-go-golems/trainmon/pkg/tui/styles"
	"github.com/go-go-golems/trainmon/pkg/tui/widgets"
)

// LogModel renders the session log. It follows the newest entry whenever the log grows.
type LogModel struct {
	entries []monitor.LogEntry

	width   int
	height  int
	focused bool

	searching bool
	search    textinput.Model
	filter    string

	vp viewport.Model
}

func NewLogModel() LogModel {
	search := textinput.New()
	search.Placeholder = "filter…"
	search.Prompt = "/ "
	search.CharLimit = 200

	m := LogModel{search: search}
	m.vp = viewport.New(0, 0)
	return m
}

func (m LogModel) Searching() bool { return m.searching }

func (m LogModel) Len() int { return len(m.entries) }

func (m LogModel) AtBottom() bool { return m.vp.AtBottom() }

func (m LogModel) WithSize(width, height int) LogModel {
	m.width, m.height = width, height
	m = m.resizeViewport()
	return m
}

func (m LogModel) WithFocus(focused bool) LogModel {
	m.focused = focused
	return m
}

// SetEntries replaces the rendered entries. The log is append-only, so a longer slice means new lines.
func (m LogModel) SetEntries(entries []monitor.LogEntry) LogModel {
	grew := len(entries) > len(m.entries)
	m.entries = entries
	m = m.refreshViewportContent(grew)
	return m
}

func (m LogModel) Update(msg tea.Msg) (LogModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.searching {
		switch v.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "enter":
			m.filter = strings.TrimSpace(m.search.Value())
			m.searching = false
			m.search.Blur()
			m = m.refreshViewportContent(true)
			return m, nil
		}

		var cmd tea.Cmd
		m.search, cmd = m.search.Update(v)
		return m, cmd
	}

	switch v.String() {
	case "/":
		m.searching = true
		m.search.SetValue(m.filter)
		m.search.CursorEnd()
		m.search.Focus()
		return m, nil
	case "ctrl+l":
		m.filter = ""
		m.search.SetValue("")
		m = m.refreshViewportContent(true)
		return m, nil
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(v)
	return m, cmd
}

func (m LogModel) View() string {
	theme := styles.DefaultTheme()

	titleRight := "[/] filter  [↑/↓] scroll"
	if m.filter != "" {
		titleRight = fmt.Sprintf("filter=%q  %s", m.filter, titleRight)
	}

	var sections []string
	if m.searching {
		sections = append(sections, m.search.View())
	}

	box := widgets.NewBox(fmt.Sprintf("Log (%d)", len(m.entries))).
		WithTitleRight(titleRight).
		WithFocus(m.focused)
	if len(m.entries) == 0 {
		box = box.WithContent(theme.Dim.Render("(no log lines yet)")).WithSize(m.width, 5)
	} else {
		box = box.WithContent(m.vp.View()).WithSize(m.width, m.vp.Height+3)
	}
	sections = append(sections, box.Render())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m LogModel) resizeViewport() LogModel {
	usableHeight := m.height - 3
	if usableHeight < 3 {
		usableHeight = 3
	}
	m.vp.Width = max(0, m.width-2)
	m.vp.Height = usableHeight
	m = m.refreshViewportContent(false)
	return m
}

func (m LogModel) refreshViewportContent(gotoBottom bool) LogModel {
	theme := styles.DefaultTheme()

	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		if m.filter != "" && !strings.Contains(e.Text, m.filter) {
			continue
		}
		style := theme.Dim
		switch {
		case strings.HasPrefix(e.Text, styles.IconError), strings.HasPrefix(e.Text, "Error"), strings.HasPrefix(e.Text, "Maximum retry"):
			style = theme.StepFailed
		case strings.HasPrefix(e.Text, "SSE connection error"):
			style = theme.LogWarning
		case strings.HasPrefix(e.Text, styles.IconSuccess):
			style = theme.StepCompleted
		case strings.HasPrefix(e.Text, styles.IconRunning):
			style = theme.StepProcessing
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			theme.Dim.Render("["+e.At.Format("15:04:05")+"]"),
			" ",
			style.Render(e.Text),
		))
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if gotoBottom {
		m.vp.GotoBottom()
	}
	return m
}
