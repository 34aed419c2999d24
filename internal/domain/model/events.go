package model

import "time"

// ShakeEvent is a normalized, accepted shake.
type ShakeEvent struct {
	UserID       string
	Intensity    int
	Acceleration float64
	// Timestamp is the client supplied value, echoed back unchanged. The
	// throttle measures spacing from it.
	Timestamp any
	// At is the server instant the shake was accepted.
	At      time.Time
	X, Y, Z float64
	// ShakeNumber is passed through as sent, 0 when falsy or absent.
	ShakeNumber any
}

// MotionSample is a forwarded motion reading. It is never stored.
type MotionSample struct {
	UserID            string
	TotalAcceleration float64
	X, Y, Z           float64
	Timestamp         any
}
