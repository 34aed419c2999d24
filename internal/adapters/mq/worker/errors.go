package worker

import "errors"

// Sentinel kinds for dispatcher errors.
var (
	ErrHandlerPanic = errors.New("handler panicked")
)
