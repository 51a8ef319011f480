package handler

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/port"
	"github.com/boddenberg/carcare-engine/internal/service"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type contextKey string

const entitlementKey contextKey = "entitlement"

// entitlement is what the middleware learned about the caller's tier.
type entitlement struct {
	tier      domain.Tier
	fromToken bool
	enforced  bool
}

// EntitlementMiddleware reads an optional Bearer entitlement token. A
// malformed or invalid token is rejected. When enforced, callers without a
// token are treated as free and request-declared tiers are ignored.
func EntitlementMiddleware(tokens *service.EntitlementTokens, enforced bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ent := entitlement{tier: domain.Tier{Kind: domain.TierFree}, enforced: enforced}

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" && tokens != nil {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					logger.Warn("entitlement: invalid token format",
						zap.String("path", r.URL.Path),
						zap.String("remote_addr", r.RemoteAddr),
					)
					writeError(w, http.StatusUnauthorized, "invalid authorization header")
					return
				}

				tier, err := tokens.Validate(parts[1])
				if err != nil {
					logger.Warn("entitlement: invalid or expired token",
						zap.String("path", r.URL.Path),
						zap.String("remote_addr", r.RemoteAddr),
						zap.Error(err),
					)
					writeError(w, http.StatusUnauthorized, err.Error())
					return
				}
				ent.tier = tier
				ent.fromToken = true
			}

			ctx := context.WithValue(r.Context(), entitlementKey, ent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TierFromRequest picks the tier a request is evaluated under. A token
// always wins; a declared tier is honoured only when tokens are not enforced.
func TierFromRequest(r *http.Request, declared *domain.Tier) domain.Tier {
	ent, ok := r.Context().Value(entitlementKey).(entitlement)
	if ok && (ent.fromToken || ent.enforced) {
		return ent.tier
	}
	if declared != nil && declared.Kind != "" {
		return *declared
	}
	return domain.Tier{Kind: domain.TierFree}
}

// RateLimitMiddleware applies a token bucket per client IP.
func RateLimitMiddleware(rps float64, burst int, limiters port.Cache[*rate.Limiter], logger *zap.Logger) func(http.Handler) http.Handler {
	var mu sync.Mutex
	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters.Get(key); ok {
			return l
		}
		l := rate.NewLimiter(rate.Limit(rps), burst)
		limiters.Set(key, l)
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				client = host
			}
			if !limiterFor(client).Allow() {
				logger.Debug("rate limited", zap.String("client", client), zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS sets CORS headers and answers preflight requests.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
