package fetcher

// Policy holds the tunables the fetcher applies to every adapter call.
// Mirrors the teacher's RateLimit configuration shape (limit/period/min
// delay), generalized from a persisted per-connector record into a plain
// value passed down from configuration, since adapters are stateless and
// the orchestrator owns nothing durable between cycles.
type Policy struct {
	MaxRetries       int
	BaseBackoffMs    int
	MaxBackoffMs     int
	InterCallDelayMs int
	JitterFraction   float64 // e.g. 0.2 for +/-20%
}

// DefaultPolicy matches the typical values enumerated in spec.md §4.2.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:       3,
		BaseBackoffMs:    5000,
		MaxBackoffMs:     60000,
		InterCallDelayMs: 1000,
		JitterFraction:   0.2,
	}
}
