package health

import "context"

// Pinger checks availability of a backing store (catalog or key-value database).
type Pinger interface {
	Ping(ctx context.Context) error
}

// OracleChecker checks scoring oracle availability.
type OracleChecker interface {
	HealthCheck(ctx context.Context) error
}
