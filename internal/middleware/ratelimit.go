package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Limiter decides whether a key may make another request
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimit rejects requests once the client IP is over quota. It relies on
// chi's RealIP middleware to have set RemoteAddr.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if !limiter.Allow(r.Context(), key) {
				log.Warn().Str("client_ip", key).Str("path", r.URL.Path).Msg("Rate limit exceeded")
				respondError(w, "Too many requests, please try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
