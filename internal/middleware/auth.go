package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"church-site-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	tokenKey    contextKey = "token"
)

// IdentityResolver turns a session token into the signed-in identity
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*services.Identity, error)
}

// AuthMiddleware creates a middleware for bearer session authentication
func AuthMiddleware(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			identity, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, services.ErrTimeout) {
					log.Warn().Err(err).Msg("Session check timed out")
					respondError(w, "Session check timed out", http.StatusGatewayTimeout)
					return
				}
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCompleteProfile rejects identities that have not filled in their
// profile. It must run after AuthMiddleware.
func RequireCompleteProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		if identity == nil {
			respondError(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		if !identity.ProfileComplete {
			respondError(w, "Profile incomplete", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token of an "Authorization: Bearer" header
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetIdentity extracts the signed-in identity from context
func GetIdentity(ctx context.Context) *services.Identity {
	identity, _ := ctx.Value(identityKey).(*services.Identity)
	return identity
}

// GetToken extracts the session token from context
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity *services.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": message})
}
