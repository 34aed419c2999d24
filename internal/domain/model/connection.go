// Package model contains domain models passed between layers.
package model

import "time"

// Role is the registered kind of a connection.
type Role int

const (
	// RoleUnregistered is held from connect until a successful register message.
	RoleUnregistered Role = iota
	// RoleController is a phone producing shake and motion events.
	RoleController
	// RoleDisplay is a screen consuming broadcasts.
	RoleDisplay
)

// Wire tokens accepted in register messages.
const (
	TokenController = "controller"
	TokenDisplay    = "display"
)

func (r Role) String() string {
	switch r {
	case RoleController:
		return TokenController
	case RoleDisplay:
		return TokenDisplay
	default:
		return "unregistered"
	}
}

// ParseRole maps a register token to a Role. Only the two registrable roles are accepted.
func ParseRole(token string) (Role, bool) {
	switch token {
	case TokenController:
		return RoleController, true
	case TokenDisplay:
		return RoleDisplay, true
	default:
		return RoleUnregistered, false
	}
}

// Roles lists every role, registered ones last.
var Roles = []Role{RoleUnregistered, RoleController, RoleDisplay} //nolint:gochecknoglobals // fixed enumeration

// Meta is transport metadata captured when a connection is accepted.
type Meta struct {
	ConnectedAt   time.Time
	RemoteAddress string
	UserAgent     string
	Referer       string
}

// Connection is one live websocket peer as tracked by the registry.
type Connection struct {
	ID   string
	Role Role
	Meta
	LastShake *ShakeEvent
}

// Clone returns a deep copy so callers never share LastShake with the registry.
func (c Connection) Clone() Connection {
	if c.LastShake != nil {
		s := *c.LastShake
		c.LastShake = &s
	}
	return c
}
