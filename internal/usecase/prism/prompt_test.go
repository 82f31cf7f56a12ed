package prism

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/incidex/internal/domain/incident"
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

func TestBuildPrompt_Prism(t *testing.T) {
	inc := &incident.Incident{ID: 7, Title: "Face recognition bias", Technologies: []string{"computer vision"}, RiskDomain: "Ethics"}
	p := &product.Product{ID: 1, Name: "PhotoTagger", Purposes: []string{"tagging"}}

	got := buildPrompt(inc, p, domprism.DefaultOptions())

	if got.System != systemPrompt {
		t.Errorf("System = %q", got.System)
	}
	if got.MaxTokens != prismMaxTokens || got.Temperature != scoringTemperature {
		t.Errorf("MaxTokens/Temperature = %d/%v", got.MaxTokens, got.Temperature)
	}
	for _, want := range []string{
		"Product: PhotoTagger",
		"Product purposes: tagging",
		"Incident: Face recognition bias",
		"Incident technologies: computer vision",
		"Risk domain: Ethics",
		"from 1 (lowest) to 5 (highest)",
	} {
		if !strings.Contains(got.User, want) {
			t.Errorf("prompt missing %q:\n%s", want, got.User)
		}
	}
	for _, d := range domprism.Dimensions {
		if !strings.Contains(got.User, "- "+string(d)+": ") {
			t.Errorf("prompt missing dimension %s", d)
		}
	}
	if strings.Contains(got.User, "Product description") {
		t.Error("empty fields must be omitted")
	}
	if got.Fingerprint != "score:7:1:prism:five_point" {
		t.Errorf("Fingerprint = %q", got.Fingerprint)
	}
}

func TestBuildPrompt_Generic(t *testing.T) {
	opts, err := domprism.NewOptions(domprism.ModeGeneric, domprism.Percent)
	if err != nil {
		t.Fatalf("NewOptions: %v", err)
	}
	got := buildPrompt(&incident.Incident{ID: 2, Title: "Leak"}, &product.Product{ID: 3, Name: "Bot"}, opts)

	if got.MaxTokens != genericMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", got.MaxTokens, genericMaxTokens)
	}
	if !strings.Contains(got.User, "confidence_score") || !strings.Contains(got.User, "from 1 to 100") {
		t.Errorf("unexpected generic prompt:\n%s", got.User)
	}
	if got.Fingerprint != "score:2:3:generic:percent" {
		t.Errorf("Fingerprint = %q", got.Fingerprint)
	}
}

func TestFingerprint_InvalidIDs(t *testing.T) {
	if fp := fingerprint(0, 1, domprism.DefaultOptions()); fp != "" {
		t.Errorf("expected empty fingerprint, got %q", fp)
	}
	if fp := fingerprint(1, -1, domprism.DefaultOptions()); fp != "" {
		t.Errorf("expected empty fingerprint, got %q", fp)
	}
}
