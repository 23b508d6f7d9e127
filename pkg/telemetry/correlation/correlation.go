package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

// HeaderName carries the correlation id on inbound and outbound requests.
const HeaderName = "X-Correlation-ID"

const maxLength = 64

type ctxKey struct{}

func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// ContextWithCorrelationID stores id on ctx; an empty id leaves ctx untouched.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// EnsureCorrelationID keeps an existing id or assigns a fresh ULID.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := ExtractCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return ContextWithCorrelationID(ctx, id), id
}

// Sanitize accepts a caller supplied id only when it is short and made of
// letters, digits and the separators - _ . : ; anything else yields "".
func Sanitize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxLength {
		return ""
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return ""
		}
	}
	return raw
}
