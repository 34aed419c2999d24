package ws

import "errors"

// Sentinel errors for the websocket transport.
var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrSendBufferFull    = errors.New("send buffer full")
	ErrUnknownCodec      = errors.New("unknown codec")
	ErrShuttingDown      = errors.New("websocket handler shutting down")
)
