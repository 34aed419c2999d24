package throttle

import "time"

// Option applies a configuration option to the Throttle.
type Option func(*Throttle)

// WithInterval sets the minimum spacing. Zero disables throttling; negative values are ignored.
func WithInterval(d time.Duration) Option {
	return func(t *Throttle) {
		if d >= 0 {
			t.interval = d
		}
	}
}
