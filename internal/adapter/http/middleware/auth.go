package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// PrincipalContextKey is the context key for the authenticated caller
	PrincipalContextKey ContextKey = "principal"

	// AccountIDHeader names the caller's account when token auth is disabled.
	AccountIDHeader = "X-Account-ID"
	// RoleHeader carries the caller's role when token auth is disabled.
	RoleHeader = "X-Role"
)

// AuthMiddleware creates an authentication middleware
func AuthMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := jwtManager.Verify(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), claims.Principal())))
		})
	}
}

// HeaderAuth trusts X-Account-ID and X-Role. It is only mounted when token
// auth is disabled, for local development behind a trusted proxy. The admin
// role is refused unless allowAdmin is set.
func HeaderAuth(allowAdmin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := strings.TrimSpace(r.Header.Get(AccountIDHeader))
			if accountID == "" {
				writeError(w, http.StatusUnauthorized, "missing "+AccountIDHeader+" header")
				return
			}

			role := domain.Role(r.Header.Get(RoleHeader))
			if role == "" {
				role = domain.RoleInvestor
			}
			if !role.IsValid() {
				writeError(w, http.StatusUnauthorized, "invalid role")
				return
			}
			if role == domain.RoleAdmin && !allowAdmin {
				writeError(w, http.StatusForbidden, "admin role requires token auth")
				return
			}

			principal := &domain.Principal{AccountID: accountID, Role: role}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole rejects callers without role. Admin satisfies every role.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if principal.Role != role && principal.Role != domain.RoleAdmin {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal stores the caller in ctx.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFromContext extracts the authenticated caller from context
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*domain.Principal)
	return p, ok && p != nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
