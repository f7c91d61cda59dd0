package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for supervisor spans.
const (
	AttrOperation = "corevisor.operation"
	AttrJobID     = "corevisor.job_id"
	AttrSafeMode  = "corevisor.safe_mode"
	AttrForce     = "corevisor.force"
	AttrVersion   = "corevisor.version"
	AttrBackup    = "corevisor.backup"
	AttrState     = "corevisor.state"
	AttrSlug      = "corevisor.service.slug"
	AttrAddon     = "corevisor.service.addon"
)

// Operation returns an attribute for a lifecycle operation name.
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// JobID returns an attribute for a supervised job id.
func JobID(id string) attribute.KeyValue {
	return attribute.String(AttrJobID, id)
}

// SafeMode returns an attribute for the safe mode flag.
func SafeMode(v bool) attribute.KeyValue {
	return attribute.Bool(AttrSafeMode, v)
}

// Force returns an attribute for the force flag.
func Force(v bool) attribute.KeyValue {
	return attribute.Bool(AttrForce, v)
}

// Version returns an attribute for a core version tag.
func Version(v string) attribute.KeyValue {
	return attribute.String(AttrVersion, v)
}

// Backup returns an attribute for the pre-update backup flag.
func Backup(v bool) attribute.KeyValue {
	return attribute.Bool(AttrBackup, v)
}

// State returns an attribute for a controller state.
func State(s string) attribute.KeyValue {
	return attribute.String(AttrState, s)
}

// Slug returns an attribute for a service slug.
func Slug(s string) attribute.KeyValue {
	return attribute.String(AttrSlug, s)
}

// Addon returns an attribute for an add-on slug.
func Addon(s string) attribute.KeyValue {
	return attribute.String(AttrAddon, s)
}

// StartLifecycleSpan starts a span for a supervised lifecycle operation.
func StartLifecycleSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "lifecycle."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append([]attribute.KeyValue{Operation(operation)}, attrs...)...),
	)
}

// StartServiceSpan starts a span for a service directory mutation.
func StartServiceSpan(ctx context.Context, operation, slug, addon string) (context.Context, trace.Span) {
	return StartSpan(ctx, "services."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(Slug(slug), Addon(addon)),
	)
}
