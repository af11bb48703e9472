package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/albapepper/courtside/internal/api/respond"
)

type claimsKey struct{}

// WithClaims returns a context carrying the caller's claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the authenticated caller, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate validates the bearer token when one is sent and stores its
// claims on the request context. Requests without a token pass through
// anonymously; a bad token is rejected with 401.
func (s *Service) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.Validate(token)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// Require rejects anonymous callers with 401 and callers whose role is not
// listed with 403. The check happens before the handler runs.
func Require(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			if !ok {
				writeAuthError(w, ErrMissingToken)
				return
			}
			if !slices.Contains(roles, claims.Role) {
				respond.WriteError(w, http.StatusForbidden, respond.CodeForbidden,
					"Role "+string(claims.Role)+" may not access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	msg := "Authentication required"
	switch {
	case errors.Is(err, ErrExpiredToken):
		msg = "Session expired"
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrInvalidToken):
		msg = "Invalid session token"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="courtside"`)
	respond.WriteError(w, http.StatusUnauthorized, respond.CodeUnauthenticated, msg)
}
