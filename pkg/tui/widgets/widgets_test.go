package widgets

import (
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/trainmon/pkg/monitor"
	"github.com/go-go-golems/trainmon/pkg/protocol"
	"github.com/stretchr/testify/require"
)

func TestProgressBar_SplitsFailedSegment(t *testing.T) {
	out := NewProgressBar(monitor.Progress{Total: 4, Completed: 1, Failed: 1, Percent: 50}).WithWidth(10).Render()

	require.Contains(t, out, "2/4 models")
	require.Contains(t, out, " 50%")
	require.Equal(t, 5, strings.Count(out, "█"))
	require.Equal(t, 5, strings.Count(out, "░"))
}

func TestProgressBar_ClampsPercent(t *testing.T) {
	out := NewProgressBar(monitor.Progress{Total: 1, Completed: 1, Percent: 140}).WithWidth(8).Render()
	require.Contains(t, out, "100%")
	require.Equal(t, 8, strings.Count(out, "█"))
	require.Zero(t, strings.Count(out, "░"))
}

func TestStepTable_RendersRows(t *testing.T) {
	out := NewStepTable([]StepRow{
		{ID: 1, Name: "Ridge", Status: protocol.StepCompleted, Details: `{"r2":0.91}`},
		{ID: 2, Name: "Gradient Boosting Regressor Tuned", Status: protocol.StepError},
	}).WithWidth(80).Render()

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Model")
	require.Contains(t, lines[1], "✓")
	require.Contains(t, lines[1], `{"r2":0.91}`)
	require.Contains(t, lines[2], "✗")
	require.Contains(t, lines[2], "Gradient Boosting Reg…")
	require.Contains(t, lines[2], "error")
}

func TestStepTable_Empty(t *testing.T) {
	require.Contains(t, NewStepTable(nil).Render(), "(no steps yet)")
}

func TestBox_HeadingCarriesHint(t *testing.T) {
	out := NewBox("Log (3)").WithTitleRight("[/] filter").WithContent("body").WithSize(40, 0).Render()
	require.Contains(t, out, "Log (3)")
	require.Contains(t, out, "[/] filter")
	require.Contains(t, out, "body")
}

func TestFormatDuration(t *testing.T) {
	require.Equal(t, "1h 2m 3s", FormatDuration(3723*time.Second))
	require.Equal(t, "1m 5s", FormatDuration(65*time.Second))
	require.Equal(t, "9s", FormatDuration(9400*time.Millisecond))
}
