package incidex

import (
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
	domrank "github.com/kailas-cloud/incidex/internal/domain/ranking"
)

func rankedFromDomain(r *domrank.Result) RankedIncident {
	inc := r.Incident()
	return RankedIncident{
		ID:             inc.ID,
		Title:          inc.Title,
		Description:    inc.Description,
		Technologies:   inc.Technologies,
		RiskLevel:      inc.RiskLevel,
		RiskDomain:     inc.RiskDomain,
		Similarity:     r.Similarity(),
		TextSimilarity: r.TextSimilarity(),
		TagSimilarity:  r.TagSimilarity(),
		Risk:           r.Risk(),
		Relevance:      r.Relevance(),
	}
}

func assessmentFromDomain(a *domprism.Assessment) Assessment {
	scores := make(map[string]float64, len(domprism.Dimensions))
	for _, d := range domprism.Dimensions {
		scores[string(d)] = a.Vector.Get(d)
	}
	var rationales map[string]string
	if len(a.Rationales) > 0 {
		rationales = make(map[string]string, len(a.Rationales))
		for d, text := range a.Rationales {
			rationales[string(d)] = text
		}
	}
	return Assessment{
		ID:              a.ID.String(),
		IncidentID:      a.IncidentID,
		ProductID:       a.ProductID,
		Mode:            Mode(a.Mode),
		Scale:           Scale(a.Vector.Scale),
		Status:          Status(a.Status),
		Scores:          scores,
		Transferability: a.Transferability,
		Rationale:       a.Rationale,
		Rationales:      rationales,
		IncidentRisk:    a.IncidentRisk,
		ScoredAt:        a.ScoredAt,
	}
}

// assessmentsFromDomain converts a batch and reports "fallback" if any entry fell back.
func assessmentsFromDomain(in []domprism.Assessment) ([]Assessment, string) {
	status := "ok"
	out := make([]Assessment, len(in))
	for i := range in {
		out[i] = assessmentFromDomain(&in[i])
		if in[i].IsFallback() {
			status = "fallback"
		}
	}
	return out, status
}
