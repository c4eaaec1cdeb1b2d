// Package context exposes correlation identifiers for logs and spans.
package context

import (
	"context"
	"strings"

	"github.com/heraerp/hera/internal/auditcontext"
	"github.com/heraerp/hera/internal/orgcontext"
)

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// OrgIDFromContext returns the active organization id as a string.
func OrgIDFromContext(ctx context.Context) string {
	id, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return ""
	}
	return id.String()
}

func ActorFromContext(ctx context.Context) (string, string) {
	return auditcontext.ActorFromContext(ctx)
}

// Gin context keys handlers set so the request log and span can report which
// convention check a request went through.
const (
	KeyGuardrailTable     = "guardrail_table"
	KeyGuardrailOperation = "guardrail_operation"
	KeyGuardrailOutcome   = "guardrail_outcome"
)
