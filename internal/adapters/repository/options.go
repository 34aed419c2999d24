package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsEnabled toggles publishing of per-role connection gauges.
func WithMetricsEnabled(enabled bool) Option {
	return func(s *MemoryStore) {
		s.metricsEnabled = enabled
	}
}
