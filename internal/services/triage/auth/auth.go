// Package auth verifies caller identity for the triage API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/mailroomhq/triage/internal/platform/errors"
)

// Config defines how bearer tokens are verified.
type Config struct {
	// Secret is the shared HS256 signing secret.
	Secret string
	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// tokenClaims is the internal claims type used for JWT parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// NewVerifier builds a token verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, fmt.Errorf("auth secret is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: []byte(secret), now: now}, nil
}

// VerifyToken validates one bearer token and returns the caller's user id.
// The user id comes from the user_id claim, falling back to sub.
func (v *Verifier) VerifyToken(token string) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", errors.New("token verifier is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.EK(apperrors.KindUnauthorized, "auth.token_missing", "bearer token is required")
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", mapJWTError(err)
	}

	now := v.now().UTC()
	if parsed.ExpiresAt != nil && !parsed.ExpiresAt.Time.UTC().After(now) {
		return "", apperrors.EK(apperrors.KindUnauthorized, "auth.token_expired", "token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return "", apperrors.EK(apperrors.KindUnauthorized, "auth.token_invalid", "token not active yet")
	}

	userID := strings.TrimSpace(parsed.UserID)
	if userID == "" {
		userID = strings.TrimSpace(parsed.Subject)
	}
	if userID == "" {
		return "", apperrors.EK(apperrors.KindUnauthorized, "auth.token_invalid", "token carries no user identity")
	}
	return userID, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.EK(apperrors.KindUnauthorized, "auth.token_invalid", "token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.EK(apperrors.KindUnauthorized, "auth.token_invalid", "token alg is invalid")
	}
	return apperrors.EK(apperrors.KindUnauthorized, "auth.token_invalid", "token is invalid")
}
