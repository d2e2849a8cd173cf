package tui

const (
	TopicSessionEvents = "trainmon.events"
	TopicUIMessages    = "trainmon.ui.msgs"
	TopicUIActions     = "trainmon.ui.actions"
)

const (
	DomainTypeSessionChanged = "session.changed"
	DomainTypeActionLog      = "action.log"
)

const (
	UITypeSessionSnapshot = "tui.session.snapshot"
	UITypeNotice          = "tui.notice"
	UITypeActionRequest   = "tui.action.request"
)
