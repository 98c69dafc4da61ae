package debate

import "errors"

var (
	ErrMalformedEvent    = errors.New("malformed event payload")
	ErrEmptyTopic        = errors.New("topic cannot be empty")
	ErrModelsNotSelected = errors.New("select a model for both sides before starting")
	ErrInvalidMaxTurns   = errors.New("max turns must be a whole number between 1 and 5")
	ErrBusy              = errors.New("cannot manage models while a debate or model operation is active")
	ErrProtectedModel    = errors.New("the default model cannot be deleted")
	ErrUnknownModel      = errors.New("model is not available on this instance")
)
