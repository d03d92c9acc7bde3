package resilience

import "time"

// CircuitBreakerConfig tunes the provider breaker. The defaults suit a
// 17-second live poll cadence: five straight failures open the circuit for
// roughly one poll interval before probing resumes.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	// ProbeBudget caps the concurrent probes allowed while half-open.
	ProbeBudget int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      15 * time.Second,
		ProbeBudget:      2,
	}
}

// NormalizeCircuitBreakerConfig backfills zero values with the defaults so a
// partially populated config never produces a breaker that rejects everything.
func NormalizeCircuitBreakerConfig(cfg CircuitBreakerConfig) CircuitBreakerConfig {
	defaults := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}
	if cfg.ProbeBudget < 1 {
		cfg.ProbeBudget = defaults.ProbeBudget
	}
	return cfg
}
