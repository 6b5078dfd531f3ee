package domain

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const storeDomainKey contextKey = "store_domain"

// WithStoreDomain returns a context carrying the store domain tag. The tag is
// threaded explicitly from dispatcher to job to pipeline so no component ever
// reads tenant identity from ambient global state.
func WithStoreDomain(ctx context.Context, domain string) context.Context {
	return context.WithValue(ctx, storeDomainKey, domain)
}

// StoreDomainFromContext returns the store domain tag, or "" when absent.
func StoreDomainFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(storeDomainKey).(string); ok {
		return v
	}
	return ""
}
