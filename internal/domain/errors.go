package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrProductNotFound signals a missing product.
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	// ErrIncidentNotFound signals a missing incident.
	ErrIncidentNotFound = fmt.Errorf("incident %w", ErrNotFound)

	// ErrInvalidRequest signals out-of-range or malformed input parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidRecord signals a catalog record the engine cannot evaluate.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrOracleUnavailable signals a scoring oracle failure (transport, provider or timeout).
	ErrOracleUnavailable = errors.New("scoring oracle unavailable")
	// ErrRateLimited signals a rate limit hit at the oracle provider.
	ErrRateLimited = fmt.Errorf("rate limited: %w", ErrOracleUnavailable)
	// ErrMalformedReply signals an oracle reply that could not be parsed.
	ErrMalformedReply = errors.New("malformed oracle reply")
	// ErrOracleQuotaExceeded signals an exhausted oracle token budget.
	ErrOracleQuotaExceeded = fmt.Errorf("oracle quota exceeded: %w", ErrOracleUnavailable)
)

// RecordError describes why a single catalog record was rejected.
type RecordError struct {
	Kind  string // "product" or "incident"
	ID    int64
	Cause string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %s %d: %s", ErrInvalidRecord.Error(), e.Kind, e.ID, e.Cause)
}

func (e *RecordError) Unwrap() error { return ErrInvalidRecord }

// NewRecordError creates an invalid record error.
func NewRecordError(kind string, id int64, cause string) error {
	return &RecordError{Kind: kind, ID: id, Cause: cause}
}
