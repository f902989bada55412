// Package requestctx carries per-request caller identity through context.
// The auth middleware stores values on the way in; handlers and outbound
// clients read them back.
package requestctx

import "context"

type userIDContextKey struct{}

type bearerTokenContextKey struct{}

// WithUserID stores the authenticated mailbox owner's id in context. An
// empty id marks an anonymous request.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the mailbox owner id stored in context, or ""
// when the request is anonymous.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(userIDContextKey{}).(string)
	return value
}

// WithBearerToken stores the caller's raw bearer token in context so outbound
// calls can forward it unchanged.
func WithBearerToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, bearerTokenContextKey{}, token)
}

// BearerTokenFromContext returns the raw bearer token stored in context.
func BearerTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(bearerTokenContextKey{}).(string)
	return value
}
