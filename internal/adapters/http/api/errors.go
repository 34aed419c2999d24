package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrRender = errors.New("status page render failed")
)
