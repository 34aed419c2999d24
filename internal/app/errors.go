package service

import "errors"

// Sentinel kinds for relay outcomes. Handlers return them so the dispatcher
// can log them; the client has already been answered (or deliberately not).
var (
	ErrUnknownRegistration = errors.New("unknown registration type")
	ErrAlreadyRegistered   = errors.New("already registered")
	ErrNotController       = errors.New("not registered as controller")
	ErrInvalidShake        = errors.New("invalid shake data")
	ErrRateLimited         = errors.New("shake rate limited")
	ErrMalformedMessage    = errors.New("malformed message")
	ErrUnknownEvent        = errors.New("unknown event")
	ErrStopped             = errors.New("service stopped")
)

// Error reply texts sent to clients.
const (
	msgNotController    = "Not registered as controller"
	msgInvalidShake     = "Invalid shake data"
	msgMalformed        = "Malformed message"
	msgUnknownRegFormat = "Unknown registration type: %s"
	msgAlreadyRegFormat = "Already registered as %s"
)
