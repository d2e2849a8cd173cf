package models

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/trainmon/pkg/monitor"
	"github.com/go-go-golems/trainmon/pkg/tui/styles"
	"github.com/go-go-golems/trainmon/pkg/tui/widgets"
)

// DashboardModel shows overall progress, the model being trained and the download state.
type DashboardModel struct {
	last  *monitor.Snapshot
	width int
}

func NewDashboardModel() DashboardModel { return DashboardModel{} }

func (m DashboardModel) WithSnapshot(s monitor.Snapshot) DashboardModel {
	m.last = &s
	return m
}

func (m DashboardModel) WithWidth(w int) DashboardModel {
	m.width = w
	return m
}

func (m DashboardModel) View(spinner string) string {
	theme := styles.DefaultTheme()
	if m.last == nil {
		return widgets.NewBox("Training").
			WithContent(theme.Dim.Render("Waiting for session…")).
			WithSize(m.width, 0).
			Render()
	}
	s := m.last

	barWidth := m.width - 30
	if barWidth > 60 {
		barWidth = 60
	}
	bar := widgets.NewProgressBar(s.Progress).WithWidth(barWidth)

	var lines []string
	lines = append(lines, bar.Render())
	lines = append(lines, fmt.Sprintf("Current: %s", theme.Heading.Render(s.Progress.Current)))
	if s.Progress.Failed > 0 {
		lines = append(lines, theme.StepFailed.Render(fmt.Sprintf("%s %d failed", styles.IconError, s.Progress.Failed)))
	}
	lines = append(lines, "Dataset: "+datasetLabel(s))
	lines = append(lines, downloadLine(s, spinner, theme))

	title := "Training"
	if !s.Training {
		title = "Training (paused)"
	}
	return widgets.NewBox(title).
		WithTitleRight(string(s.State)).
		WithContent(strings.Join(lines, "\n")).
		WithSize(m.width, 0).
		Render()
}

func datasetLabel(s *monitor.Snapshot) string {
	switch {
	case s.Dataset.ID != nil && s.Dataset.Name != nil:
		return fmt.Sprintf("%s (#%d)", *s.Dataset.Name, *s.Dataset.ID)
	case s.Dataset.ID != nil:
		return fmt.Sprintf("#%d", *s.Dataset.ID)
	case s.Dataset.Name != nil:
		return *s.Dataset.Name + " (no id)"
	default:
		return "none selected"
	}
}

func downloadLine(s *monitor.Snapshot, spinner string, theme styles.Theme) string {
	switch {
	case s.Downloading:
		return fmt.Sprintf("%s Downloading model…", spinner)
	case s.Complete:
		return theme.StepCompleted.Render(styles.IconDownload + " Model ready, press d to download")
	default:
		return theme.StepPending.Render(styles.IconPending + " Model not ready yet")
	}
}
