// Package simulate drives a relay with synthetic controllers and displays and
// reports how many events reached their destinations.
package simulate

import (
	"errors"
	"fmt"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	URL            string        // Websocket URL of the relay; empty with Discover set
	Discover       bool          // Find the relay over mDNS instead of URL
	Controllers    int           // Number of simulated phones
	Displays       int           // Number of simulated screens
	Shakes         int           // Shakes sent by each controller
	ShakeInterval  time.Duration // Spacing between shakes of one controller
	MotionPerShake int           // Motion samples sent between two shakes
	Subprotocol    string        // Wire codec subprotocol
	DialTimeout    time.Duration // Websocket handshake timeout
	Settle         time.Duration // Wait for in-flight broadcasts before closing
	Verbose        bool          // Log every received frame
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.URL == "" && !c.Discover:
		return fmt.Errorf("%w: url or discover is required", ErrInvalidConfig)
	case c.Controllers <= 0:
		return fmt.Errorf("%w: controllers must be positive", ErrInvalidConfig)
	case c.Displays < 0:
		return fmt.Errorf("%w: displays must not be negative", ErrInvalidConfig)
	case c.Shakes < 0 || c.MotionPerShake < 0:
		return fmt.Errorf("%w: event counts must not be negative", ErrInvalidConfig)
	case c.ShakeInterval <= 0:
		return fmt.Errorf("%w: shake interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	RunID              string
	ControllersJoined  int
	DisplaysJoined     int
	ShakesSent         int
	ShakesConfirmed    int
	ShakesDelivered    int
	MotionSent         int
	MotionForwardable  int
	MotionDelivered    int
	PresenceDelivered  int
	ErrorsReceived     int
	ExpectedDeliveries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// Sentinel errors.
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrHandshake     = errors.New("registration handshake failed")
	ErrUndelivered   = errors.New("events were not delivered")
)
