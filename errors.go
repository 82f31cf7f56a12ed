package incidex

import "github.com/kailas-cloud/incidex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound            = domain.ErrNotFound
	ErrProductNotFound     = domain.ErrProductNotFound
	ErrIncidentNotFound    = domain.ErrIncidentNotFound
	ErrInvalidRequest      = domain.ErrInvalidRequest
	ErrOracleUnavailable   = domain.ErrOracleUnavailable
	ErrRateLimited         = domain.ErrRateLimited
	ErrOracleQuotaExceeded = domain.ErrOracleQuotaExceeded
)
