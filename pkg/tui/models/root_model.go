package models

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trainmon/pkg/monitor"
	"github.com/go-go-golems/trainmon/pkg/tui"
	"github.com/go-go-golems/trainmon/pkg/tui/styles"
	"github.com/go-go-golems/trainmon/pkg/tui/widgets"
)

type RootModel struct {
	width  int
	height int

	pub     message.Publisher
	started time.Time
	now     func() time.Time

	lastSeq uint64
	snap    *monitor.Snapshot
	notice  string

	dashboard DashboardModel
	steps     StepsModel
	log       LogModel
	spinner   spinner.Model
}

type RootOption func(*RootModel)

// WithClock replaces time.Now for the elapsed-time display.
func WithClock(now func() time.Time) RootOption {
	return func(m *RootModel) { m.now = now }
}

func NewRootModel(pub message.Publisher, opts ...RootOption) RootModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.DefaultPalette.Info)

	m := RootModel{
		pub:       pub,
		now:       time.Now,
		dashboard: NewDashboardModel(),
		steps:     NewStepsModel(),
		log:       NewLogModel().WithFocus(true),
		spinner:   sp,
	}
	for _, o := range opts {
		o(&m)
	}
	m.started = m.now()
	return m
}

func (m RootModel) Init() tea.Cmd { return m.spinner.Tick }

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		m = m.layout()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(v)
		return m, cmd
	case tea.KeyMsg:
		if m.log.Searching() {
			var cmd tea.Cmd
			m.log, cmd = m.log.Update(v)
			return m, cmd
		}
		switch v.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "t":
			return m, m.request(tui.ActionToggleTraining)
		case "d":
			return m, m.request(tui.ActionDownload)
		}
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(v)
		return m, cmd
	case tui.SessionSnapshotMsg:
		if v.Seq != 0 && v.Seq <= m.lastSeq {
			return m, nil
		}
		m.lastSeq = v.Seq
		snap := v.Snapshot
		m.snap = &snap
		m.dashboard = m.dashboard.WithSnapshot(snap)
		m.steps = m.steps.WithSteps(snap.Steps)
		m.log = m.log.SetEntries(snap.Log)
		return m, nil
	case tui.NoticeMsg:
		m.notice = v.Text
		return m, nil
	}
	return m, nil
}

func (m RootModel) request(kind tui.ActionKind) tea.Cmd {
	pub := m.pub
	return func() tea.Msg {
		if err := tui.PublishAction(pub, tui.ActionRequest{Kind: kind}); err != nil {
			return tui.NoticeMsg{At: time.Now(), Text: "action failed: " + err.Error()}
		}
		return nil
	}
}

func (m RootModel) layout() RootModel {
	m.dashboard = m.dashboard.WithWidth(m.width)
	stepsHeight := m.height / 3
	m.steps = m.steps.WithSize(m.width, stepsHeight)
	// header 2, dashboard ~7, steps, footer 2
	logHeight := m.height - 2 - 7 - stepsHeight - 2
	m.log = m.log.WithSize(m.width, logHeight)
	return m
}

func (m RootModel) keybinds() []widgets.Keybind {
	training := "start"
	if m.snap != nil && m.snap.Training {
		training = "stop"
	}
	return []widgets.Keybind{
		{Key: "t", Label: training},
		{Key: "d", Label: "download"},
		{Key: "/", Label: "filter"},
		{Key: "q", Label: "quit"},
	}
}

func (m RootModel) View() string {
	header := widgets.NewHeader("trainmon").WithWidth(m.width).WithElapsed(m.now().Sub(m.started))
	if m.snap != nil {
		conn := string(m.snap.Connection)
		header = header.WithStatus(styles.ConnectionIcon(conn), conn, m.snap.Connection == monitor.ConnectionConnected)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header.Render(),
		m.dashboard.View(m.spinner.View()),
		m.steps.View(),
		m.log.View(),
		widgets.NewFooter(m.keybinds()).WithWidth(m.width).WithNotice(m.notice).Render(),
	)
}
