package resolve

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer for resolution operations.
const TracerName = "nameplate/resolve"

// Span attribute keys.
const (
	attrProjectID  = "project_id"
	attrMention    = "mention"
	attrSource     = "source"
	attrConfidence = "confidence"
	attrReview     = "requires_review"
)

// Span names.
const (
	spanResolve    = "resolve.mention"
	spanResolveAll = "resolve.batch"
	spanVerifyFan  = "resolve.verification"
	spanInference  = "resolve.inference"
)

type tracer struct {
	tr trace.Tracer
}

func newTracer() *tracer {
	return &tracer{tr: otel.Tracer(TracerName)}
}

func (t *tracer) startResolve(ctx context.Context, projectID, mention string) (context.Context, trace.Span) {
	return t.tr.Start(ctx, spanResolve,
		trace.WithAttributes(
			attribute.String(attrProjectID, projectID),
			attribute.String(attrMention, mention),
		),
	)
}

func (t *tracer) startBatch(ctx context.Context, projectID string, count int) (context.Context, trace.Span) {
	return t.tr.Start(ctx, spanResolveAll,
		trace.WithAttributes(
			attribute.String(attrProjectID, projectID),
			attribute.Int("mentions", count),
		),
	)
}

func (t *tracer) startVerification(ctx context.Context, verifiers int) (context.Context, trace.Span) {
	return t.tr.Start(ctx, spanVerifyFan,
		trace.WithAttributes(attribute.Int("verifiers", verifiers)),
	)
}

func (t *tracer) startInference(ctx context.Context, provider string) (context.Context, trace.Span) {
	return t.tr.Start(ctx, spanInference,
		trace.WithAttributes(attribute.String("provider", provider)),
	)
}

// annotateResult records the resolution outcome on the span.
func annotateResult(span trace.Span, res *Result) {
	span.SetAttributes(
		attribute.String(attrSource, string(res.Source)),
		attribute.Float64(attrConfidence, res.Confidence),
		attribute.Bool(attrReview, res.RequiresReview),
	)
}
