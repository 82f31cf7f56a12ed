package events

import (
	"time"

	"github.com/kailas-cloud/incidex/internal/domain/prism"
)

// AssessmentEvent is the wire form of a scored (incident, product) pair.
type AssessmentEvent struct {
	ID              string             `json:"id"`
	IncidentID      int64              `json:"incident_id"`
	ProductID       int64              `json:"product_id"`
	Mode            string             `json:"mode"`
	Status          string             `json:"status"`
	Scale           string             `json:"scale"`
	Scores          map[string]float64 `json:"scores"`
	Transferability float64            `json:"transferability"`
	IncidentRisk    float64            `json:"incident_risk"`
	Rationale       string             `json:"rationale"`
	ScoredAt        time.Time          `json:"scored_at"`
}

// NewAssessmentEvent converts a domain assessment.
func NewAssessmentEvent(a prism.Assessment) AssessmentEvent {
	scores := make(map[string]float64, len(prism.Dimensions))
	for _, d := range prism.Dimensions {
		scores[string(d)] = a.Vector.Get(d)
	}
	return AssessmentEvent{
		ID:              a.ID.String(),
		IncidentID:      a.IncidentID,
		ProductID:       a.ProductID,
		Mode:            string(a.Mode),
		Status:          string(a.Status),
		Scale:           string(a.Vector.Scale),
		Scores:          scores,
		Transferability: a.Transferability,
		IncidentRisk:    a.IncidentRisk,
		Rationale:       a.Rationale,
		ScoredAt:        a.ScoredAt,
	}
}
