package product

import (
	"strings"

	"github.com/kailas-cloud/incidex/internal/domain"
)

// Product is an AI-enabled offering that incidents are matched against. Read-only.
type Product struct {
	ID            int64    `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description" yaml:"description"`
	Technologies  []string `json:"technologies" yaml:"technologies"`
	Purposes      []string `json:"purposes" yaml:"purposes"`
	EthicalIssues []string `json:"ethical_issues" yaml:"ethical_issues"`
	ProductURL    string   `json:"product_url,omitempty" yaml:"product_url"`
}

// Text returns the blob compared against incident text.
func (p *Product) Text() string {
	return strings.TrimSpace(p.Name + " " + p.Description)
}

// Validate rejects records the engine cannot rank against.
func (p *Product) Validate() error {
	if p.ID <= 0 {
		return domain.NewRecordError("product", p.ID, "id must be positive")
	}
	return nil
}
