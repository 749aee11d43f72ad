// Package middleware provides HTTP middleware for tenant authentication.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// tenantKey is the context key for storing the authenticated tenant context.
const tenantKey ContextKey = "tenant"

// TenantContext identifies the organization and operator behind a request.
// Everything downstream is scoped by it.
type TenantContext struct {
	TenantID   uuid.UUID
	OperatorID uuid.UUID
}

// TokenValidator validates JWT bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TenantContext, error)
}

// APIKeyAuthenticator verifies a tenant API key (service-to-service auth).
type APIKeyAuthenticator interface {
	AuthenticateAPIKey(ctx context.Context, tenantID uuid.UUID, key string) (bool, error)
}

// Auth creates middleware that resolves the tenant context from either a
// Bearer JWT or an X-Tenant-ID + X-API-Key pair, and rejects requests that
// carry neither.
func Auth(jwtService TokenValidator, apiKeys APIKeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.Fields(authHeader)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}

				tc, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
				if err != nil {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}

				next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tc)))
				return
			}

			if key := r.Header.Get("X-API-Key"); key != "" {
				tenantID, err := uuid.Parse(r.Header.Get("X-Tenant-ID"))
				if err != nil {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}

				ok, err := apiKeys.AuthenticateAPIKey(r.Context(), tenantID, key)
				if err != nil || !ok {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}

				// Service identity: no individual operator behind the key.
				tc := &TenantContext{TenantID: tenantID, OperatorID: uuid.Nil}
				next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tc)))
				return
			}

			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}
}

// WithTenant stores the tenant context for downstream handlers.
func WithTenant(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, tenantKey, tc)
}

// GetTenant extracts the authenticated tenant context from the request.
func GetTenant(r *http.Request) (*TenantContext, error) {
	tc, ok := r.Context().Value(tenantKey).(*TenantContext)
	if !ok {
		return nil, fmt.Errorf("tenant context not found in request")
	}
	return tc, nil
}
