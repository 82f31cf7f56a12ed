package incidex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/incidex/internal/domain"
)

const prismReply = `{"logical_coherence": 4, "factual_accuracy": 5, "practical_implementability": 3,
"contextual_relevance": 4, "impact": 2, "exploitability": 1}`

type fakeOracle struct {
	reply string
	err   error
	calls atomic.Int32
}

func (f *fakeOracle) Complete(_ context.Context, _ Prompt) (Completion, error) {
	f.calls.Add(1)
	if f.err != nil {
		return Completion{}, f.err
	}
	return Completion{Text: f.reply, PromptTokens: 80, TotalTokens: 120}, nil
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(context.Background(), append([]Option{WithDataset("testdata/catalog.yaml")}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestNew_NoCatalog(t *testing.T) {
	_, err := New(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog backend required")
}

func TestNew_MissingDataset(t *testing.T) {
	_, err := New(context.Background(), WithDataset("testdata/missing.yaml"))
	require.Error(t, err)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := openBackend(context.Background(), &engineConfig{catalog: "mongo"})
	require.Error(t, err)
}

func TestEngine_Rank(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.Rank(context.Background(), 1, RankOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 5)
	assert.Contains(t, []int64{1, 3}, got[0].ID)

	for _, r := range got {
		assert.InDelta(t, r.Similarity*r.Risk, r.Relevance, 1e-9)
		assert.GreaterOrEqual(t, r.Similarity, 0.0)
		assert.LessOrEqual(t, r.Similarity, 1.0)
	}
}

func TestEngine_Rank_Filters(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.Rank(context.Background(), 1, RankOptions{RiskDomain: "Privacy", SortBy: SortRisk})
	require.NoError(t, err)
	for _, r := range got {
		assert.Equal(t, "Privacy", r.RiskDomain)
	}

	got, err = e.Rank(context.Background(), 1, RankOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEngine_Rank_Errors(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Rank(context.Background(), 1, RankOptions{SortBy: "date"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.Rank(context.Background(), 1, RankOptions{MinSimilarity: 2})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.Rank(context.Background(), 99, RankOptions{})
	require.ErrorIs(t, err, ErrProductNotFound)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_Score(t *testing.T) {
	oracle := &fakeOracle{reply: prismReply}
	e := newTestEngine(t, WithOracle(oracle))

	a, err := e.Score(context.Background(), 1, 1, ScoreOptions{})
	require.NoError(t, err)

	assert.Equal(t, StatusOK, a.Status)
	assert.Equal(t, ModePrism, a.Mode)
	assert.Equal(t, ScaleFivePoint, a.Scale)
	assert.Len(t, a.Scores, 6)
	assert.InDelta(t, 4.0, a.Scores["logical_coherence"], 1e-9)
	assert.GreaterOrEqual(t, a.Transferability, 1.0)
	assert.LessOrEqual(t, a.Transferability, 5.0)
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.IsFallback())
	assert.Equal(t, int32(1), oracle.calls.Load())
}

func TestEngine_Score_Generic(t *testing.T) {
	e := newTestEngine(t, WithOracle(&fakeOracle{reply: `{"confidence_score": 80, "reasoning": "same stack"}`}))

	a, err := e.Score(context.Background(), 1, 1, ScoreOptions{Mode: ModeGeneric, Scale: ScalePercent})
	require.NoError(t, err)

	assert.Equal(t, StatusOK, a.Status)
	assert.InDelta(t, 80.0, a.Transferability, 1e-9)
	assert.True(t, strings.HasPrefix(a.Rationale, "Generic Analysis: "), a.Rationale)
}

func TestEngine_Score_NoOracleFallsBack(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.Score(context.Background(), 1, 1, ScoreOptions{})
	require.NoError(t, err)

	assert.True(t, a.IsFallback())
	assert.True(t, strings.HasPrefix(a.Rationale, "Error in calculation"), a.Rationale)
	for dim, v := range a.Scores {
		assert.InDelta(t, 3.0, v, 1e-9, dim)
	}
}

func TestEngine_Score_OracleErrorFallsBack(t *testing.T) {
	e := newTestEngine(t, WithOracle(&fakeOracle{err: errors.New("connection reset")}))

	a, err := e.Score(context.Background(), 1, 1, ScoreOptions{Scale: ScalePercent})
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, a.Status)
	assert.InDelta(t, 50.0, a.Transferability, 1e-9)
}

func TestEngine_Score_Errors(t *testing.T) {
	e := newTestEngine(t, WithOracle(&fakeOracle{reply: prismReply}))

	_, err := e.Score(context.Background(), 1, 1, ScoreOptions{Mode: "holistic"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.Score(context.Background(), 1, 1, ScoreOptions{Scale: "unit"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.Score(context.Background(), 99, 1, ScoreOptions{})
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = e.Score(context.Background(), 1, 99, ScoreOptions{})
	require.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestEngine_ScoreBulk(t *testing.T) {
	e := newTestEngine(t, WithOracle(&fakeOracle{reply: prismReply}), WithConcurrency(2))

	got, err := e.ScoreBulk(context.Background(), 1, []int64{3, 99, 1}, ScoreOptions{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(3), got[0].IncidentID)
	assert.Equal(t, int64(99), got[1].IncidentID)
	assert.Equal(t, int64(1), got[2].IncidentID)
	assert.True(t, got[1].IsFallback())
	assert.Equal(t, StatusOK, got[0].Status)
	assert.Equal(t, StatusOK, got[2].Status)
}

func TestEngine_ScoreBulk_Validation(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ScoreBulk(context.Background(), 1, nil, ScoreOptions{})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.ScoreBulk(context.Background(), 1, make([]int64, maxBulkSize+1), ScoreOptions{})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.ScoreBulk(context.Background(), 99, []int64{1}, ScoreOptions{})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestEngine_ScoreBatch(t *testing.T) {
	e := newTestEngine(t, WithOracle(&fakeOracle{reply: prismReply}))

	got, err := e.ScoreBatch(context.Background(), []ScorePair{
		{ProductID: 2, IncidentID: 2},
		{ProductID: 99, IncidentID: 1},
		{ProductID: 1, IncidentID: 99},
	}, ScoreOptions{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, StatusOK, got[0].Status)
	assert.Equal(t, int64(2), got[0].ProductID)
	assert.True(t, got[1].IsFallback())
	assert.Equal(t, "Error in calculation: product not found", got[1].Rationale)
	assert.True(t, got[2].IsFallback())
	assert.Equal(t, "Error in calculation: incident not found", got[2].Rationale)
	assert.InDelta(t, 3.0, got[2].Transferability, 1e-9)

	_, err = e.ScoreBatch(context.Background(), nil, ScoreOptions{})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEngine_SingleAndBulkAgree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`products:
  - id: 1
    name: PhotoTagger
incidents:
  - id: 7
    risk_level: high
  - id: 8
    title: face recognition bias
    risk_level: high
`), 0o600))

	oracle := &fakeOracle{reply: prismReply}
	e, err := New(context.Background(), WithDataset(path), WithOracle(oracle))
	require.NoError(t, err)
	t.Cleanup(e.Close)

	bulk, err := e.ScoreBulk(context.Background(), 1, []int64{7, 8}, ScoreOptions{})
	require.NoError(t, err)
	for i, id := range []int64{7, 8} {
		single, err := e.Score(context.Background(), 1, id, ScoreOptions{})
		require.NoError(t, err)
		assert.Equal(t, single.Status, bulk[i].Status, "incident %d", id)
		assert.Equal(t, single.Rationale, bulk[i].Rationale, "incident %d", id)
		assert.InDelta(t, single.Transferability, bulk[i].Transferability, 1e-9, "incident %d", id)
		assert.InDelta(t, single.IncidentRisk, bulk[i].IncidentRisk, 1e-9, "incident %d", id)
	}
	assert.True(t, bulk[0].IsFallback())
	assert.Equal(t, "Error in calculation: invalid record", bulk[0].Rationale)
	assert.Equal(t, StatusOK, bulk[1].Status)
	// Only incident 8 reaches the oracle, once per path.
	assert.Equal(t, int32(2), oracle.calls.Load())
}

func TestEngine_Top(t *testing.T) {
	e := newTestEngine(t, WithOracle(&fakeOracle{reply: prismReply}))

	got, err := e.Top(context.Background(), 1, 2, ScoreOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.GreaterOrEqual(t, got[0].Transferability, got[1].Transferability)

	_, err = e.Top(context.Background(), 1, 0, ScoreOptions{})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEngine_Explain(t *testing.T) {
	oracle := &fakeOracle{reply: "  Both rely on computer vision.  "}
	e := newTestEngine(t, WithOracle(oracle))

	text, err := e.Explain(context.Background(), 1, 1, ExplainFullPrism)
	require.NoError(t, err)
	assert.Equal(t, "Both rely on computer vision.", text)

	text, err = e.Explain(context.Background(), 1, 1, ExplainNone)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, int32(1), oracle.calls.Load())

	_, err = e.Explain(context.Background(), 1, 1, "essay")
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.Explain(context.Background(), 1, 42, ExplainGeneric)
	require.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestEngine_Explain_OracleFailure(t *testing.T) {
	e := newTestEngine(t, WithOracle(&fakeOracle{err: errors.New("boom")}))

	text, err := e.Explain(context.Background(), 1, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "Error generating explanation", text)
}

func TestEngine_Health(t *testing.T) {
	e := newTestEngine(t)

	h := e.Health(context.Background())
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, map[string]string{"catalog": "ok"}, h.Checks)
}

func TestEngine_Prometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newTestEngine(t, WithPrometheus(reg))

	_, err := e.Score(context.Background(), 1, 1, ScoreOptions{})
	require.NoError(t, err)
	_, err = e.Rank(context.Background(), 99, RankOptions{})
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(e.obs.metrics.operations.WithLabelValues("score", "fallback")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(e.obs.metrics.operations.WithLabelValues("rank", "error")), 1e-9)

	// A second engine on the same registry reuses the collectors.
	e2 := newTestEngine(t, WithPrometheus(reg))
	assert.Same(t, e.obs.metrics.operations, e2.obs.metrics.operations)
}

func TestOracleAdapter_WrapsErrors(t *testing.T) {
	sentinel := errors.New("quota")
	a := &oracleAdapter{inner: &fakeOracle{err: sentinel}}

	_, err := a.Complete(context.Background(), domain.Prompt{User: "x"})
	require.ErrorIs(t, err, sentinel)
}

func TestOracleAdapter_CopiesUsage(t *testing.T) {
	a := &oracleAdapter{inner: &fakeOracle{reply: "ok"}}

	c, err := a.Complete(context.Background(), domain.Prompt{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, domain.Completion{Text: "ok", PromptTokens: 80, TotalTokens: 120}, c)
}

func TestNoopOracle(t *testing.T) {
	_, err := noopOracle{}.Complete(context.Background(), domain.Prompt{})
	require.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestObserver_NilSafe(t *testing.T) {
	var o *observer
	assert.NotPanics(t, func() { o.observe("rank", time.Now(), "ok", nil) })
}
