package repository

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrNotFound      = errors.New("connection not found")
	ErrInvalidID     = errors.New("invalid connection id")
	ErrInvalidRole   = errors.New("invalid role")
	ErrNotController = errors.New("connection is not a controller")
	ErrStaleShake    = errors.New("shake is older than the last accepted shake")
)
