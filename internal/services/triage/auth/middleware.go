package auth

import (
	"net/http"
	"strings"

	apperrors "github.com/mailroomhq/triage/internal/platform/errors"
	"github.com/mailroomhq/triage/internal/platform/httpx"
	"github.com/mailroomhq/triage/internal/platform/requestctx"
)

// Require rejects requests without a valid bearer token.
func Require(verifier *Verifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.WriteJSONError(w, apperrors.EK(apperrors.KindUnauthorized, "auth.token_missing", "bearer token is required"))
				return
			}
			userID, err := verifier.VerifyToken(token)
			if err != nil {
				httpx.WriteJSONError(w, err)
				return
			}
			ctx := requestctx.WithUserID(r.Context(), userID)
			ctx = requestctx.WithBearerToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional attaches identity when a valid bearer token is present. Requests
// without a token proceed anonymous; a token that fails verification is still
// rejected.
func Optional(verifier *Verifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := verifier.VerifyToken(token)
			if err != nil {
				httpx.WriteJSONError(w, err)
				return
			}
			ctx := requestctx.WithUserID(r.Context(), userID)
			ctx = requestctx.WithBearerToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
