package ranking

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/incidex/internal/domain/incident"
	"github.com/kailas-cloud/incidex/internal/domain/product"
	domrank "github.com/kailas-cloud/incidex/internal/domain/ranking"
	"github.com/kailas-cloud/incidex/internal/domain/similarity"
	"github.com/kailas-cloud/incidex/internal/logger"
	"github.com/kailas-cloud/incidex/internal/metrics"
)

// tieBreak is the fixed secondary order; the primary key is skipped.
var tieBreak = []domrank.SortKey{domrank.SortRelevance, domrank.SortSimilarity, domrank.SortRisk}

type scored struct {
	res domrank.Result
	ok  bool
}

// Rank scores candidates against p, applies the request filters, sorts and truncates.
// It never fails: incidents that cannot be scored are logged (via the context logger) and skipped.
func Rank(
	ctx context.Context, p product.Product, candidates []incident.Incident, req domrank.Request, cfg Config,
) []domrank.Result {
	if len(candidates) == 0 {
		return []domrank.Result{}
	}
	metrics.RankingCandidatesTotal.Add(float64(len(candidates)))

	slots := make([]scored, len(candidates))
	if cfg.ParallelThreshold > 0 && len(candidates) > cfg.ParallelThreshold && cfg.Workers > 1 {
		scoreParallel(ctx, p, candidates, slots, cfg)
	} else {
		scoreRange(ctx, p, candidates, slots, cfg)
	}

	out := make([]domrank.Result, 0, len(candidates))
	for i := range slots {
		if !slots[i].ok {
			continue
		}
		r := slots[i].res
		if r.Similarity() < req.MinSimilarity() || r.Risk() < req.MinRisk() {
			continue
		}
		if d := req.RiskDomain(); d != "" && r.Incident().RiskDomain != d {
			continue
		}
		out = append(out, r)
	}

	sortResults(out, req.SortBy())
	if len(out) > req.Limit() {
		out = out[:req.Limit()]
	}
	metrics.RankingResultsTotal.Add(float64(len(out)))
	return out
}

// scoreParallel splits candidates into one contiguous chunk per worker.
// Each worker writes only its own slots; the sort decides output order.
func scoreParallel(ctx context.Context, p product.Product, candidates []incident.Incident, slots []scored, cfg Config) {
	chunk := (len(candidates) + cfg.Workers - 1) / cfg.Workers
	var g errgroup.Group
	for start := 0; start < len(candidates); start += chunk {
		end := min(start+chunk, len(candidates))
		g.Go(func() error {
			scoreRange(ctx, p, candidates[start:end], slots[start:end], cfg)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
}

func scoreRange(ctx context.Context, p product.Product, candidates []incident.Incident, slots []scored, cfg Config) {
	log := logger.FromContext(ctx)
	for i := range candidates {
		res, reason, err := scoreOne(&p, &candidates[i], cfg)
		if err != nil {
			metrics.RankingSkippedTotal.WithLabelValues(reason).Inc()
			log.Warn("Skipping incident",
				zap.Int64("incident_id", candidates[i].ID),
				zap.String("reason", reason),
				zap.Error(err),
			)
			continue
		}
		slots[i] = scored{res: res, ok: true}
	}
}

func scoreOne(p *product.Product, inc *incident.Incident, cfg Config) (res domrank.Result, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			reason = "panic"
			err = fmt.Errorf("recovered: %v", r)
		}
	}()

	if err := inc.Validate(); err != nil {
		return domrank.Result{}, "invalid", err
	}

	textSim := similarity.Lexical(p.Text(), inc.Text())
	tagSim := similarity.TagOverlap(p.Technologies, inc.Technologies)
	sim := clamp01(cfg.TextWeight*textSim + cfg.TagWeight*tagSim)
	r := clamp01(inc.LightweightRisk())

	return domrank.NewResult(*inc, textSim, tagSim, sim, r), "", nil
}

// sortResults orders by the primary key descending, then by the remaining keys
// in relevance, similarity, risk order, then by incident ID ascending.
func sortResults(out []domrank.Result, primary domrank.SortKey) {
	keys := make([]domrank.SortKey, 0, len(tieBreak)+1)
	keys = append(keys, primary)
	for _, k := range tieBreak {
		if k != primary {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(out, func(a, b domrank.Result) int {
		for _, k := range keys {
			if c := cmp.Compare(b.Score(k), a.Score(k)); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Incident().ID, b.Incident().ID)
	})
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
