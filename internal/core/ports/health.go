package ports

import "context"

// HealthChecker reports the health of one external dependency.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name identifies the dependency (e.g. "postgresql", "redis").
	Name() string
}
