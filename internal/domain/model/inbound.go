package model

import "time"

// InboundKind classifies work for the dispatch loop.
type InboundKind int

const (
	// InboundConnect records a newly accepted connection.
	InboundConnect InboundKind = iota
	// InboundMessage carries one decoded client frame.
	InboundMessage
	// InboundDisconnect retires a connection.
	InboundDisconnect
	// InboundRegistrationDeadline fires when a connection's registration window closes.
	InboundRegistrationDeadline
	// InboundStatsTick triggers a stats broadcast.
	InboundStatsTick
)

func (k InboundKind) String() string {
	switch k {
	case InboundConnect:
		return "connect"
	case InboundMessage:
		return "message"
	case InboundDisconnect:
		return "disconnect"
	case InboundRegistrationDeadline:
		return "registration_deadline"
	case InboundStatsTick:
		return "stats_tick"
	default:
		return "unknown"
	}
}

// Inbound is one unit of work for the dispatch loop.
type Inbound struct {
	Kind   InboundKind
	ConnID string

	// Meta is set for InboundConnect.
	Meta Meta

	// Event and Data are set for InboundMessage. Malformed marks a frame that
	// could not be decoded; Event and Data are then empty.
	Event     string
	Data      map[string]any
	Malformed bool

	// Err is the transport error that ended the connection, if any.
	Err error

	ReceivedAt time.Time
}
