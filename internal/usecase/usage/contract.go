package usage

import domusage "github.com/kailas-cloud/incidex/internal/domain/usage"

// BudgetReader provides read-only access to oracle budget windows.
type BudgetReader interface {
	Daily() domusage.Counters
	Monthly() domusage.Counters
}
