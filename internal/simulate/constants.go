package simulate

import "time"

// Defaults used by the command line tool.
const (
	DefaultControllers    = 10
	DefaultDisplays       = 1
	DefaultShakes         = 5
	DefaultShakeInterval  = 1100 * time.Millisecond
	DefaultMotionPerShake = 3
	DefaultDialTimeout    = 10 * time.Second
	DefaultSettle         = 2 * time.Second
)

// Payload generation ranges. Motion above motionThreshold is forwarded by a
// relay running with default settings.
const (
	motionThreshold   = 15.0
	calmMotionMax     = 12.0
	vigorousMotionMin = 16.0
	vigorousRange     = 14.0
	axisRange         = 20.0
	accelerationMin   = 15.0
	accelerationRange = 25.0
	maxIntensity      = 10

	percentageMultiplier = 100
	handshakeTimeout     = 5 * time.Second
)
