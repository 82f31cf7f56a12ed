package prism

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/domain/incident"
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/domain/product"
)

const (
	scoringTemperature = 0.2
	prismMaxTokens     = 800
	genericMaxTokens   = 300
)

const systemPrompt = "You are an AI risk analyst. You assess how transferable a recorded AI incident " +
	"is to a given product. Answer with a single JSON object and nothing else."

var dimensionQuestions = map[domprism.Dimension]string{
	domprism.LogicalCoherence:          "does the failure mechanism of the incident logically carry over to the product?",
	domprism.FactualAccuracy:           "how well established are the incident facts this judgment relies on?",
	domprism.PracticalImplementability: "how practical is it for the same failure to occur in the product?",
	domprism.ContextualRelevance:       "how similar are the deployment context, users and data?",
	domprism.Impact:                    "how severe would the harm be if it happened in the product?",
	domprism.Exploitability:            "how easily could the weakness be triggered or exploited?",
}

// buildPrompt renders the oracle request for one (incident, product) pair.
func buildPrompt(inc *incident.Incident, p *product.Product, opts domprism.Options) domain.Prompt {
	lo, hi := opts.Scale().Bounds()

	var b strings.Builder
	writeProduct(&b, p)
	b.WriteString("\n")
	writeIncident(&b, inc)
	b.WriteString("\n")

	maxTokens := prismMaxTokens
	if opts.Mode() == domprism.ModeGeneric {
		maxTokens = genericMaxTokens
		fmt.Fprintf(&b, "Rate your overall confidence that this incident could happen to the product "+
			"on a scale from %g to %g, where %g means it is irrelevant and %g means it is almost certain to transfer.\n",
			lo, hi, lo, hi)
		b.WriteString(`Respond as {"confidence_score": <number>, "reasoning": "<two sentences>"}.`)
	} else {
		fmt.Fprintf(&b, "Score the transferability of this incident to the product on each PRISM dimension "+
			"using a scale from %g (lowest) to %g (highest):\n", lo, hi)
		for _, d := range domprism.Dimensions {
			fmt.Fprintf(&b, "- %s: %s\n", d, dimensionQuestions[d])
		}
		b.WriteString(`Respond as {"<dimension>": {"score": <number>, "rationale": "<one sentence>"}, ...} ` +
			"with all six dimensions.")
	}

	return domain.Prompt{
		System:      systemPrompt,
		User:        b.String(),
		Temperature: scoringTemperature,
		MaxTokens:   maxTokens,
		Fingerprint: fingerprint(inc.ID, p.ID, opts),
	}
}

// fingerprint identifies a scoring request for memoization. Empty disables caching.
func fingerprint(incidentID, productID int64, opts domprism.Options) string {
	if incidentID <= 0 || productID <= 0 {
		return ""
	}
	return fmt.Sprintf("score:%d:%d:%s:%s", incidentID, productID, opts.Mode(), opts.Scale())
}

func writeProduct(b *strings.Builder, p *product.Product) {
	fmt.Fprintf(b, "Product: %s\n", p.Name)
	writeField(b, "Product description", p.Description)
	writeField(b, "Product technologies", strings.Join(p.Technologies, ", "))
	writeField(b, "Product purposes", strings.Join(p.Purposes, ", "))
	writeField(b, "Known ethical issues", strings.Join(p.EthicalIssues, ", "))
}

func writeIncident(b *strings.Builder, inc *incident.Incident) {
	fmt.Fprintf(b, "Incident: %s\n", inc.Title)
	writeField(b, "Incident description", inc.Description)
	writeField(b, "Incident technologies", strings.Join(inc.Technologies, ", "))
	writeField(b, "Risk domain", inc.RiskDomain)
	writeField(b, "Risk level", inc.RiskLevel)
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
