// Package types contains the wire payloads exchanged with websocket clients.
package types

import (
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
)

// Client to server event names.
const (
	EventRegister = "register"
	EventShake    = "shake"
	EventMotion   = "motion"
	EventPing     = "ping"
)

// Server to client event names. EventShake and EventMotion are reused for broadcasts.
const (
	EventConnected        = "connected"
	EventUserCount        = "userCount"
	EventUserConnected    = "userConnected"
	EventUserDisconnected = "userDisconnected"
	EventShakeConfirmed   = "shakeConfirmed"
	EventStats            = "stats"
	EventError            = "error"
	EventPong             = "pong"
)

// Inbound is a decoded client frame. Data is kept loosely typed so payload
// fields can be validated the same way regardless of codec.
type Inbound struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// Outbound is a server frame.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Connected greets a newly registered controller.
type Connected struct {
	Message    string `json:"message"`
	UserID     string `json:"userId"`
	TotalUsers int    `json:"totalUsers"`
}

// UserCount is the initial state sent to a newly registered display.
type UserCount struct {
	Count int              `json:"count"`
	Users []ConnectionView `json:"users"`
}

// UserPresence announces a controller joining or leaving.
type UserPresence struct {
	UserID     string `json:"userId"`
	TotalUsers int    `json:"totalUsers"`
}

// Shake is a normalized shake broadcast to displays.
type Shake struct {
	UserID       string  `json:"userId"`
	Intensity    int     `json:"intensity"`
	Acceleration float64 `json:"acceleration"`
	Timestamp    any     `json:"timestamp"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
	ShakeNumber  any     `json:"shakeNumber"`
}

// ShakeConfirmed acknowledges an accepted shake to its sender.
type ShakeConfirmed struct {
	Intensity    int     `json:"intensity"`
	Timestamp    any     `json:"timestamp"`
	Acceleration float64 `json:"acceleration"`
	ShakeNumber  any     `json:"shakeNumber"`
}

// Motion is a forwarded motion sample.
type Motion struct {
	UserID            string  `json:"userId"`
	TotalAcceleration float64 `json:"totalAcceleration"`
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	Z                 float64 `json:"z"`
	Timestamp         any     `json:"timestamp"`
}

// Stats is the periodic health broadcast.
type Stats struct {
	ConnectedControllers int    `json:"connectedControllers"`
	ConnectedDisplays    int    `json:"connectedDisplays"`
	Timestamp            string `json:"timestamp"`
}

// Error reports a rejected request to its sender.
type Error struct {
	Message string `json:"message"`
}

// Pong answers a ping.
type Pong struct {
	Timestamp string `json:"timestamp"`
}

// ConnectionView is the public projection of a registry record.
type ConnectionView struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	UserAgent     string    `json:"userAgent,omitempty"`
	ConnectedAt   time.Time `json:"connectedAt"`
	LastShake     *Shake    `json:"lastShake"`
	RemoteAddress string    `json:"remoteAddress,omitempty"`
}

// Timestamp formats t the way every server generated timestamp is sent.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// NewShake projects an accepted shake onto the wire.
func NewShake(s model.ShakeEvent) Shake {
	return Shake{
		UserID:       s.UserID,
		Intensity:    s.Intensity,
		Acceleration: s.Acceleration,
		Timestamp:    s.Timestamp,
		X:            s.X,
		Y:            s.Y,
		Z:            s.Z,
		ShakeNumber:  s.ShakeNumber,
	}
}

// NewShakeConfirmed builds the sender acknowledgment for s.
func NewShakeConfirmed(s model.ShakeEvent) ShakeConfirmed {
	return ShakeConfirmed{
		Intensity:    s.Intensity,
		Timestamp:    s.Timestamp,
		Acceleration: s.Acceleration,
		ShakeNumber:  s.ShakeNumber,
	}
}

// NewMotion projects a forwarded sample onto the wire.
func NewMotion(m model.MotionSample) Motion {
	return Motion{
		UserID:            m.UserID,
		TotalAcceleration: m.TotalAcceleration,
		X:                 m.X,
		Y:                 m.Y,
		Z:                 m.Z,
		Timestamp:         m.Timestamp,
	}
}

// NewConnectionView projects a registry record.
func NewConnectionView(c model.Connection) ConnectionView {
	v := ConnectionView{
		ID:            c.ID,
		Type:          c.Role.String(),
		UserAgent:     c.UserAgent,
		ConnectedAt:   c.ConnectedAt.UTC(),
		RemoteAddress: c.RemoteAddress,
	}
	if c.LastShake != nil {
		s := NewShake(*c.LastShake)
		v.LastShake = &s
	}
	return v
}

// NewConnectionViews projects a snapshot, never returning nil so it encodes as [].
func NewConnectionViews(conns []model.Connection) []ConnectionView {
	out := make([]ConnectionView, 0, len(conns))
	for _, c := range conns {
		out = append(out, NewConnectionView(c))
	}
	return out
}
