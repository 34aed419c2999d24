package discovery

import "errors"

// Sentinel errors for relay discovery.
var (
	ErrInvalidPort  = errors.New("invalid port")
	ErrNotFound     = errors.New("no relay found")
	ErrAdvertising  = errors.New("mdns advertisement failed")
	ErrInvalidEntry = errors.New("invalid relay entry")
)
