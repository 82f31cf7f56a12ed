package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/incidex/internal/domain/usage"
	"github.com/kailas-cloud/incidex/internal/domain/usage/budget"
	"github.com/kailas-cloud/incidex/internal/domain/usage/metrics"
)

// Service handles oracle usage reporting.
type Service struct {
	br    BudgetReader
	model string
	now   func() time.Time
}

// New creates a Service. br can be nil (unlimited mode, nothing tracked).
func New(br BudgetReader, model string) *Service {
	return &Service{br: br, model: model, now: func() time.Time { return time.Now().UTC() }}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now()
	var start, end, resetsAt int64
	var c domusage.Counters

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = dayStart.UnixMilli()
		end = dayStart.Add(24 * time.Hour).UnixMilli()
		resetsAt = end
		if s.br != nil {
			c = s.br.Daily()
		}
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = monthStart.UnixMilli()
		end = monthStart.AddDate(0, 1, 0).UnixMilli()
		resetsAt = end
		if s.br != nil {
			c = s.br.Monthly()
		}
	default:
		// total: counters are only retained per month, no period boundaries
		if s.br != nil {
			c = s.br.Monthly()
		}
	}

	b := budget.New(int(c.Limit), int(c.Tokens), resetsAt)
	m := metrics.New(int(c.Requests), int(c.Tokens), int(c.CacheHits))

	return domusage.NewReport(period, start, end, s.model, m, b)
}
