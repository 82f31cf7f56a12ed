package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEngineMetrics()
	os.Exit(m.Run())
}

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs   []published
	err    error
	closed bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func testAssessment() prism.Assessment {
	return prism.Assessment{
		ID:              uuid.MustParse("6f1c2e1a-4c55-4a7e-9a53-0f1d7c8f2b11"),
		IncidentID:      10,
		ProductID:       1,
		Mode:            prism.ModePrism,
		Vector:          prism.Uniform(prism.FivePoint, 4),
		Transferability: 4,
		Rationale:       "Logical Coherence: same model",
		Status:          prism.StatusOK,
		IncidentRisk:    0.72,
		ScoredAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestConnect_EmptyURLIsNoop(t *testing.T) {
	p, err := Connect(context.Background(), "", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishAssessment(context.Background(), testAssessment()))
	p.Close()
}

func TestPublishAssessment(t *testing.T) {
	fc := &fakeConn{}
	p := &Publisher{conn: fc, logger: zap.NewNop()}
	before := testutil.ToFloat64(metrics.EventsPublishedTotal.WithLabelValues("ok"))

	require.NoError(t, p.PublishAssessment(context.Background(), testAssessment()))

	require.Len(t, fc.msgs, 1)
	assert.Equal(t, "incidex.assessment.1.ok", fc.msgs[0].subject)

	var ev AssessmentEvent
	require.NoError(t, json.Unmarshal(fc.msgs[0].data, &ev))
	assert.Equal(t, "6f1c2e1a-4c55-4a7e-9a53-0f1d7c8f2b11", ev.ID)
	assert.Equal(t, int64(10), ev.IncidentID)
	assert.Equal(t, "five_point", ev.Scale)
	assert.Len(t, ev.Scores, 6)
	assert.Equal(t, 4.0, ev.Scores["contextual_relevance"])
	assert.InDelta(t, 0.72, ev.IncidentRisk, 1e-9)
	assert.True(t, ev.ScoredAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	after := testutil.ToFloat64(metrics.EventsPublishedTotal.WithLabelValues("ok"))
	assert.Equal(t, 1.0, after-before)
}

func TestPublishAssessment_Error(t *testing.T) {
	fc := &fakeConn{err: errors.New("nats: connection closed")}
	p := &Publisher{conn: fc, logger: zap.NewNop()}
	before := testutil.ToFloat64(metrics.EventsPublishedTotal.WithLabelValues("error"))

	err := p.PublishAssessment(context.Background(), testAssessment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incidex.assessment.1.ok")

	after := testutil.ToFloat64(metrics.EventsPublishedTotal.WithLabelValues("error"))
	assert.Equal(t, 1.0, after-before)
}

func TestPublishAssessment_CancelledContext(t *testing.T) {
	fc := &fakeConn{}
	p := &Publisher{conn: fc, logger: zap.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.PublishAssessment(ctx, testAssessment()), context.Canceled)
	assert.Empty(t, fc.msgs)
}

func TestSubjectAssessment(t *testing.T) {
	assert.Equal(t, "incidex.assessment.42.fallback", SubjectAssessment(42, "fallback"))
}

func TestClose(t *testing.T) {
	fc := &fakeConn{}
	p := &Publisher{conn: fc, logger: zap.NewNop()}
	p.Close()
	assert.True(t, fc.closed)
}
