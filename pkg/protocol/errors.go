package protocol

const (
	ErrInvalidJSON    = "E_STEP_INVALID_JSON"
	ErrMissingID      = "E_STEP_MISSING_ID"
	ErrUnknownStatus  = "E_STEP_UNKNOWN_STATUS"
	ErrInvalidDetails = "E_STEP_INVALID_DETAILS"
)
