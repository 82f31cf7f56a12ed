// Package events publishes scoring events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain/prism"
	"github.com/kailas-cloud/incidex/internal/metrics"
)

// conn is the slice of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// Publisher sends assessment events. A Publisher without a connection is a no-op.
type Publisher struct {
	conn   conn
	logger *zap.Logger
}

// Connect dials NATS and makes sure the assessment stream exists.
// An empty url returns a no-op publisher.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*Publisher, error) {
	if url == "" {
		return &Publisher{logger: logger}, nil
	}

	nc, err := nats.Connect(url,
		nats.Name("incidex"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(ctx, js); err != nil {
		logger.Warn("Failed to ensure assessment stream", zap.Error(err))
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream) error {
	maxAge, _ := time.ParseDuration(StreamMaxAge)
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{subjectPrefix + ">"},
		MaxAge:   maxAge,
	})
	return err
}

// Enabled reports whether events go anywhere.
func (p *Publisher) Enabled() bool { return p.conn != nil }

// PublishAssessment publishes one assessment. Core NATS publish is fire-and-forget,
// so ctx is only checked before sending.
func (p *Publisher) PublishAssessment(ctx context.Context, a prism.Assessment) error {
	if p.conn == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(NewAssessmentEvent(a))
	if err != nil {
		return fmt.Errorf("marshal assessment event: %w", err)
	}

	subject := SubjectAssessment(a.ProductID, string(a.Status))
	if err := p.conn.Publish(subject, payload); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
