// internal/logging/context.go
package logging

import (
	"context"
	"regexp"

	"go.uber.org/zap"
)

type requestIDKey struct{}

const maxRequestIDLen = 128

var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidID reports whether id is safe to attach as a correlation ID.
// Check inbound X-Request-ID headers with it before WithRequestID.
func ValidID(id string) bool {
	return len(id) <= maxRequestIDLen && requestIDPattern.MatchString(id)
}

// WithRequestID attaches a request ID to ctx. Validate untrusted IDs
// with ValidID first.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID attached to ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func contextFields(ctx context.Context) []zap.Field {
	if id := RequestIDFromContext(ctx); id != "" {
		return []zap.Field{zap.String("request.id", id)}
	}
	return nil
}
