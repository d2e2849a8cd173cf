package styles

import "github.com/go-go-golems/trainmon/pkg/protocol"

// Status icons
const (
	IconSuccess   = "✓"
	IconError     = "✗"
	IconWarning   = "⚠"
	IconRunning   = "▶"
	IconPending   = "○"
	IconDownload  = "⇣"
	IconConnected = "●"
	IconOffline   = "○"
)

// StepIcon returns the icon for a training step status.
func StepIcon(status protocol.StepStatus) string {
	switch status {
	case protocol.StepCompleted:
		return IconSuccess
	case protocol.StepProcessing:
		return IconRunning
	case protocol.StepError:
		return IconError
	default:
		return IconPending
	}
}

// ConnectionIcon returns the icon for a stream connection state.
func ConnectionIcon(state string) string {
	switch state {
	case "connected":
		return IconConnected
	case "connecting":
		return IconRunning
	default:
		return IconOffline
	}
}
