package explain

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
	"github.com/kailas-cloud/incidex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEngineMetrics()
	os.Exit(m.Run())
}

type mockOracle struct {
	text  string
	err   error
	calls []domain.Prompt
}

func (m *mockOracle) Complete(_ context.Context, p domain.Prompt) (domain.Completion, error) {
	m.calls = append(m.calls, p)
	if m.err != nil {
		return domain.Completion{}, m.err
	}
	return domain.Completion{Text: m.text}, nil
}

type mockCatalog struct{}

func (mockCatalog) GetProduct(_ context.Context, id int64) (product.Product, error) {
	if id != 1 {
		return product.Product{}, domain.ErrProductNotFound
	}
	return product.Product{ID: 1, Name: "PhotoTagger", Technologies: []string{"computer vision"}}, nil
}

func (mockCatalog) GetIncident(_ context.Context, id int64) (incident.Incident, error) {
	if id != 10 {
		return incident.Incident{}, domain.ErrIncidentNotFound
	}
	return incident.Incident{
		ID: 10, Title: "Face recognition bias", RiskLevel: "High", RiskDomain: "Ethics",
		Scale:  prism.FivePoint,
		Scores: prism.LegacyVector{LogicalCoherence: 5, FactualAccuracy: 3, Uniqueness: 1, ImpactScale: 4},
	}, nil
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeGeneric, "none": ModeNone, "generic": ModeGeneric, "full_prism": ModeFullPrism} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("verbose"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestExplain_None(t *testing.T) {
	o := &mockOracle{text: "unused"}
	s := New(o, nil, zap.NewNop())
	if got := s.Explain(context.Background(), &product.Product{ID: 1}, &incident.Incident{ID: 2}, ModeNone); got != "" {
		t.Errorf("Explain(none) = %q", got)
	}
	if len(o.calls) != 0 {
		t.Error("oracle must not be called for mode none")
	}
}

func TestExplain_Generic(t *testing.T) {
	o := &mockOracle{text: "  Both rely on face embeddings.\n"}
	s := New(o, nil, zap.NewNop())
	before := testutil.ToFloat64(metrics.ExplanationsTotal.WithLabelValues("generic", "ok"))

	p, _ := mockCatalog{}.GetProduct(context.Background(), 1)
	inc, _ := mockCatalog{}.GetIncident(context.Background(), 10)
	got := s.Explain(context.Background(), &p, &inc, ModeGeneric)

	if got != "Both rely on face embeddings." {
		t.Errorf("Explain = %q", got)
	}
	prompt := o.calls[0]
	if prompt.Temperature != 0.3 || prompt.MaxTokens != 500 {
		t.Errorf("Temperature/MaxTokens = %v/%d", prompt.Temperature, prompt.MaxTokens)
	}
	if !strings.HasSuffix(prompt.User, "Provide a brief explanation of the key similarities.") {
		t.Errorf("unexpected prompt:\n%s", prompt.User)
	}
	if strings.Contains(prompt.User, "Stored PRISM scores") {
		t.Error("generic prompt must not include stored scores")
	}
	if prompt.Fingerprint != "" {
		t.Error("explanations must not be memoized")
	}
	after := testutil.ToFloat64(metrics.ExplanationsTotal.WithLabelValues("generic", "ok"))
	if after-before != 1 {
		t.Errorf("expected explanations_total{ok} +1, got %v", after-before)
	}
}

func TestExplain_FullPrism(t *testing.T) {
	o := &mockOracle{text: "Detailed."}
	s := New(o, nil, zap.NewNop())

	p, _ := mockCatalog{}.GetProduct(context.Background(), 1)
	inc, _ := mockCatalog{}.GetIncident(context.Background(), 10)
	s.Explain(context.Background(), &p, &inc, ModeFullPrism)

	user := o.calls[0].User
	for _, want := range []string{
		"- Logical Coherence: 1.00",
		"- Factual Accuracy: 0.50",
		"- Uniqueness: 0.00",
		"- Impact Scale: 0.75",
		"Risk level: High",
		"Risk domain: Ethics",
		"Provide a detailed explanation using the PRISM framework.",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
}

func TestExplain_Fallback(t *testing.T) {
	tests := []struct {
		name string
		o    *mockOracle
	}{
		{"oracle error", &mockOracle{err: domain.ErrOracleUnavailable}},
		{"empty reply", &mockOracle{text: "   "}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(tc.o, nil, zap.NewNop())
			got := s.Explain(context.Background(), &product.Product{ID: 1}, &incident.Incident{ID: 2}, ModeFullPrism)
			if got != FallbackText {
				t.Errorf("Explain = %q, want %q", got, FallbackText)
			}
		})
	}
}

func TestExplainIDs(t *testing.T) {
	s := New(&mockOracle{text: "ok"}, mockCatalog{}, zap.NewNop())

	got, err := s.ExplainIDs(context.Background(), 1, 10, ModeGeneric)
	if err != nil || got != "ok" {
		t.Errorf("ExplainIDs = %q, %v", got, err)
	}
	if _, err := s.ExplainIDs(context.Background(), 2, 10, ModeGeneric); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := s.ExplainIDs(context.Background(), 1, 11, ModeGeneric); !errors.Is(err, domain.ErrIncidentNotFound) {
		t.Errorf("expected ErrIncidentNotFound, got %v", err)
	}
}
