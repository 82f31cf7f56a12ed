package prism

import (
	"context"

	"github.com/kailas-cloud/incidex/internal/domain"
	domprism "github.com/kailas-cloud/incidex/internal/domain/prism"
)

// Oracle produces completions for scoring prompts.
type Oracle interface {
	Complete(ctx context.Context, p domain.Prompt) (domain.Completion, error)
}

// Publisher announces finished assessments. Publishing failures never affect scoring.
type Publisher interface {
	PublishAssessment(ctx context.Context, a domprism.Assessment) error
}
