package widgets

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/trainmon/pkg/monitor"
	"github.com/go-go-golems/trainmon/pkg/tui/styles"
)

// ProgressBar draws training progress: finished models over models seen, then the percentage.
// Failed steps count as finished and get their own segment.
type ProgressBar struct {
	progress monitor.Progress
	width    int
	theme    styles.Theme
}

func NewProgressBar(p monitor.Progress) ProgressBar {
	return ProgressBar{progress: p, width: 20, theme: styles.DefaultTheme()}
}

// WithWidth sets the bar width, excluding the label and percentage.
func (p ProgressBar) WithWidth(width int) ProgressBar {
	p.width = max(5, width)
	return p
}

func (p ProgressBar) Render() string {
	pr := p.progress
	percent := min(100, max(0, pr.Percent))

	done := p.width * percent / 100
	failed := 0
	if finished := pr.Completed + pr.Failed; finished > 0 {
		failed = done * pr.Failed / finished
	}
	ok := done - failed

	bar := p.theme.StepCompleted.Render(strings.Repeat("█", ok)) +
		p.theme.StepFailed.Render(strings.Repeat("█", failed)) +
		p.theme.StepPending.Render(strings.Repeat("░", p.width-done))

	return fmt.Sprintf("%d/%d models  %s %3d%%", pr.Completed+pr.Failed, pr.Total, bar, percent)
}
