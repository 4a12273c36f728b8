package middleware

import (
	"net/http"

	"go.uber.org/zap"

	pkgerrors "mermaidview/pkg/errors"
	"mermaidview/pkg/ratelimit"
)

// RateLimit guards expensive endpoints with a per-client token bucket.
// Clients are keyed by the RealIP-resolved remote address. burst is a
// function because the limit can change at runtime; the rejection message
// must quote the limit that actually applied.
func RateLimit(limiter ratelimit.Limiter, burst func() int, window string, errHandler *pkgerrors.Handler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), r.RemoteAddr)
			if err != nil {
				errHandler.Handle(w, r, pkgerrors.NewInternalError("rate limiter failed").WithCause(err))
				return
			}

			if !allowed {
				logger.Warn("rate limit exceeded",
					zap.String("remoteAddr", r.RemoteAddr),
					zap.String("path", r.URL.Path),
				)
				errHandler.Handle(w, r, pkgerrors.NewRateLimitError(burst(), window))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
