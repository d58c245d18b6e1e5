package recognition

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

const instrumentationName = "github.com/joseph-ayodele/form-extractor/internal/recognition"

type observedClient struct {
	backend string
	client  Client
	tracer  trace.Tracer
}

type ObservedOption func(*observedClient)

// WithTracerProvider replaces the global provider installed by telemetry.SetupTracer.
func WithTracerProvider(tp trace.TracerProvider) ObservedOption {
	return func(c *observedClient) {
		if tp != nil {
			c.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// NewObserved wraps every backend call in a trace span.
func NewObserved(backend string, c Client, opts ...ObservedOption) Client {
	oc := &observedClient{backend: backend, client: c, tracer: otel.Tracer(instrumentationName)}
	for _, o := range opts {
		o(oc)
	}
	return oc
}

func (c *observedClient) Submit(ctx context.Context, doc entity.Document, feature constants.Feature) (string, error) {
	ctx, span := c.tracer.Start(ctx, "recognition.submit "+c.backend)
	defer span.End()

	span.SetAttributes(
		attribute.String("document.id", doc.ID),
		attribute.String("document.media_type", doc.MediaType),
		attribute.String("recognition.feature", string(feature)),
	)

	jobID, err := c.client.Submit(ctx, doc, feature)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("recognition.job_id", jobID))
	return jobID, nil
}

func (c *observedClient) Status(ctx context.Context, jobID string, feature constants.Feature) (StatusResult, error) {
	ctx, span := c.tracer.Start(ctx, "recognition.status "+c.backend)
	defer span.End()

	span.SetAttributes(
		attribute.String("recognition.job_id", jobID),
		attribute.String("recognition.feature", string(feature)),
	)

	res, err := c.client.Status(ctx, jobID, feature)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(
		attribute.String("recognition.status", string(res.Status)),
		attribute.Int("recognition.blocks", len(res.Blocks)),
	)
	return res, nil
}
