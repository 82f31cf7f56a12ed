package incident

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/risk"
)

func f(v float64) *float64 { return &v }

func TestUnitImpact(t *testing.T) {
	inc := Incident{ID: 1, ImpactScale: f(4), Scale: prism.FivePoint}
	if got := *inc.UnitImpact(); got != 0.75 {
		t.Errorf("UnitImpact() = %v, want 0.75", got)
	}

	inc = Incident{ID: 1, ImpactScale: f(0.4)}
	if got := *inc.UnitImpact(); got != 0.4 {
		t.Errorf("UnitImpact() with default scale = %v, want 0.4", got)
	}

	inc = Incident{ID: 1}
	if inc.UnitImpact() != nil {
		t.Error("missing impact must stay nil")
	}
}

func TestLightweightRisk_MonotonicOnFivePoint(t *testing.T) {
	prev := -1.0
	for _, impact := range []float64{1, 2, 5} {
		inc := Incident{ID: 1, Scale: prism.FivePoint, ImpactScale: f(impact), ConfidenceScore: f(0.5)}
		got := inc.LightweightRisk()
		if got <= prev {
			t.Errorf("impact %v: risk %v not above %v", impact, got, prev)
		}
		prev = got
	}
	if got := (&Incident{ID: 1, Scale: prism.FivePoint, ImpactScale: f(1), ConfidenceScore: f(0.5)}).LightweightRisk(); got != 0.25 {
		t.Errorf("impact 1 risk = %v, want 0.25", got)
	}
	if got := (&Incident{ID: 1, ConfidenceScore: f(0.5)}).LightweightRisk(); got != risk.DefaultLightweight {
		t.Errorf("missing impact risk = %v, want default", got)
	}
}

func TestUnitScores_InheritsDeclaredScale(t *testing.T) {
	inc := Incident{
		ID:     1,
		Scale:  prism.FivePoint,
		Scores: prism.LegacyVector{LogicalCoherence: 5, ImpactScale: 1},
	}
	u := inc.UnitScores()
	if u.LogicalCoherence != 1 || u.ImpactScale != 0 {
		t.Errorf("UnitScores() = %+v", u)
	}
}

func TestLevel(t *testing.T) {
	inc := Incident{RiskLevel: " High"}
	if inc.Level() != risk.High {
		t.Errorf("Level() = %q", inc.Level())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		inc     Incident
		scoring bool
		wantErr bool
	}{
		{"valid", Incident{ID: 1, Title: "x"}, true, false},
		{"zero id", Incident{ID: 0, Title: "x"}, false, true},
		{"negative id", Incident{ID: -3, Title: "x"}, false, true},
		{"bad scale", Incident{ID: 1, Title: "x", Scale: "ten"}, false, true},
		{"empty text rankable", Incident{ID: 1}, false, false},
		{"empty text not scorable", Incident{ID: 1}, true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			if tc.scoring {
				err = tc.inc.ValidateForScoring()
			} else {
				err = tc.inc.Validate()
			}
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidRecord) {
				t.Errorf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}
