package memcatalog

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

// Dataset is a self-contained catalog snapshot.
type Dataset struct {
	Products  []product.Product
	Incidents []incident.Incident
}

// LoadDataset reads a YAML or JSON dataset file.
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config/flags
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return ParseDataset(data)
}

// ParseDataset decodes a dataset document. JSON input is accepted as YAML.
func ParseDataset(data []byte) (Dataset, error) {
	var doc datasetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset: %w", err)
	}
	ds := Dataset{
		Products:  make([]product.Product, 0, len(doc.Products)),
		Incidents: make([]incident.Incident, 0, len(doc.Incidents)),
	}
	for _, p := range doc.Products {
		ds.Products = append(ds.Products, product.Product{
			ID:            p.ID,
			Name:          p.Name,
			Description:   p.Description,
			Technologies:  p.Technologies,
			Purposes:      p.Purposes,
			EthicalIssues: p.EthicalIssues,
			ProductURL:    p.ProductURL,
		})
	}
	for _, i := range doc.Incidents {
		ds.Incidents = append(ds.Incidents, incident.Incident{
			ID:              i.ID,
			Title:           i.Title,
			Description:     i.Description,
			Technologies:    i.Technologies,
			RiskLevel:       i.RiskLevel,
			RiskDomain:      i.RiskDomain,
			ImpactScale:     i.ImpactScale,
			ConfidenceScore: i.ConfidenceScore,
			Scores:          i.Scores,
			Scale:           i.Scale,
			CreatedAt:       i.CreatedAt,
			UpdatedAt:       i.UpdatedAt,
		})
	}
	return ds, nil
}

type datasetDoc struct {
	Products  []productDoc  `yaml:"products"`
	Incidents []incidentDoc `yaml:"incidents"`
}

type productDoc struct {
	ID            int64   `yaml:"id"`
	Name          string  `yaml:"name"`
	Description   string  `yaml:"description"`
	Technologies  tagList `yaml:"technologies"`
	Purposes      tagList `yaml:"purposes"`
	EthicalIssues tagList `yaml:"ethical_issues"`
	ProductURL    string  `yaml:"product_url"`
}

type incidentDoc struct {
	ID              int64              `yaml:"id"`
	Title           string             `yaml:"title"`
	Description     string             `yaml:"description"`
	Technologies    tagList            `yaml:"technologies"`
	RiskLevel       string             `yaml:"risk_level"`
	RiskDomain      string             `yaml:"risk_domain"`
	ImpactScale     *float64           `yaml:"impact_scale"`
	ConfidenceScore *float64           `yaml:"confidence_score"`
	Scores          prism.LegacyVector `yaml:"scores"`
	Scale           prism.Scale        `yaml:"scale"`
	CreatedAt       time.Time          `yaml:"created_at"`
	UpdatedAt       time.Time          `yaml:"updated_at"`
}

// tagList decodes a sequence of strings. Any other node (a plain string,
// null, a mapping) becomes an empty list; non-string items are dropped.
type tagList []string

func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	out := tagList{}
	if node.Kind == yaml.SequenceNode {
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode && item.ShortTag() == "!!str" {
				out = append(out, item.Value)
			}
		}
	}
	*t = out
	return nil
}
