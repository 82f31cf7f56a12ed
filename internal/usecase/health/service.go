package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means ranking works but scoring or caching may not.
	Degraded Status = "degraded"
	// Unhealthy means the catalog is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as report keys.
const (
	ComponentCatalog  = "catalog"
	ComponentDatabase = "database"
	ComponentOracle   = "oracle"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	catalog  Pinger
	database Pinger
	oracle   OracleChecker
}

// New creates a Service. oracle can be nil.
func New(catalog Pinger, oracle OracleChecker) *Service {
	return &Service{catalog: catalog, oracle: oracle}
}

// WithDatabase adds the key-value database (oracle cache, budget counters) to the checks.
func (s *Service) WithDatabase(db Pinger) *Service {
	s.database = db
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)
	checks[ComponentCatalog] = result(s.catalog.Ping(ctx))

	if s.database != nil {
		checks[ComponentDatabase] = result(s.database.Ping(ctx))
	}
	if s.oracle != nil {
		checks[ComponentOracle] = result(s.oracle.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentCatalog] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
