package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

// productDoc is the JSON layout of incidex:product:{id}.
// Tag fields stay raw so malformed values decode to empty lists.
type productDoc struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Technologies  json.RawMessage `json:"technologies,omitempty"`
	Purposes      json.RawMessage `json:"purposes,omitempty"`
	EthicalIssues json.RawMessage `json:"ethical_issues,omitempty"`
	ProductURL    string          `json:"product_url,omitempty"`
}

// incidentDoc is the JSON layout of incidex:incident:{id}.
type incidentDoc struct {
	ID              int64              `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Technologies    json.RawMessage    `json:"technologies,omitempty"`
	RiskLevel       string             `json:"risk_level"`
	RiskDomain      string             `json:"risk_domain"`
	ImpactScale     *float64           `json:"impact_scale,omitempty"`
	ConfidenceScore *float64           `json:"confidence_score,omitempty"`
	Scores          prism.LegacyVector `json:"scores"`
	Scale           prism.Scale        `json:"scale,omitempty"`
	CreatedAt       time.Time          `json:"created_at,omitzero"`
	UpdatedAt       time.Time          `json:"updated_at,omitzero"`
}

func (d *productDoc) toDomain() product.Product {
	return product.Product{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		Technologies:  domain.DecodeTags(d.Technologies),
		Purposes:      domain.DecodeTags(d.Purposes),
		EthicalIssues: domain.DecodeTags(d.EthicalIssues),
		ProductURL:    d.ProductURL,
	}
}

func (d *incidentDoc) toDomain() incident.Incident {
	return incident.Incident{
		ID:              d.ID,
		Title:           d.Title,
		Description:     d.Description,
		Technologies:    domain.DecodeTags(d.Technologies),
		RiskLevel:       d.RiskLevel,
		RiskDomain:      d.RiskDomain,
		ImpactScale:     d.ImpactScale,
		ConfidenceScore: d.ConfidenceScore,
		Scores:          d.Scores,
		Scale:           d.Scale,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func productToDoc(p *product.Product) productDoc {
	return productDoc{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Technologies:  mustTags(p.Technologies),
		Purposes:      mustTags(p.Purposes),
		EthicalIssues: mustTags(p.EthicalIssues),
		ProductURL:    p.ProductURL,
	}
}

func incidentToDoc(i *incident.Incident) incidentDoc {
	return incidentDoc{
		ID:              i.ID,
		Title:           i.Title,
		Description:     i.Description,
		Technologies:    mustTags(i.Technologies),
		RiskLevel:       i.RiskLevel,
		RiskDomain:      i.RiskDomain,
		ImpactScale:     i.ImpactScale,
		ConfidenceScore: i.ConfidenceScore,
		Scores:          i.Scores,
		Scale:           i.Scale,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

func mustTags(tags []string) json.RawMessage {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags) //nolint:errchkjson // []string always marshals
	return data
}

// firstOf unwraps the JSONPath "$" reply, which is an array holding the document.
func firstOf[T any](raw []byte) (T, error) {
	var docs []T
	var zero T
	if err := json.Unmarshal(raw, &docs); err != nil {
		return zero, fmt.Errorf("unmarshal: %w", err)
	}
	if len(docs) == 0 {
		return zero, domain.ErrNotFound
	}
	return docs[0], nil
}
