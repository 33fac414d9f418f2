package api

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"

	"pickpoint/internal/config"

	"golang.org/x/time/rate"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated user id stored by the auth middleware,
// or 0 when auth is disabled.
func UserID(ctx context.Context) int64 {
	if v, ok := ctx.Value(userIDKey).(int64); ok {
		return v
	}
	return 0
}

// BearerAuth provides bearer-token auth and per-token rate limiting.
type BearerAuth struct {
	cfg      config.ServerConfig
	tokens   map[string]config.BearerToken
	limiters sync.Map // map[string]*rate.Limiter
}

func NewBearerAuth(cfg config.ServerConfig) *BearerAuth {
	m := make(map[string]config.BearerToken, len(cfg.Auth.Tokens))
	for _, t := range cfg.Auth.Tokens {
		m[t.Token] = t
	}
	return &BearerAuth{cfg: cfg, tokens: m}
}

func (a *BearerAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			client, ok := a.lookup(token)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, client.UserID))
		}

		if !a.allow(r) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func (a *BearerAuth) lookup(token string) (config.BearerToken, bool) {
	for stored, client := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1 {
			return client, true
		}
	}
	return config.BearerToken{}, false
}

func (a *BearerAuth) allow(r *http.Request) bool {
	if a.cfg.RateLimit.RPS <= 0 {
		return true
	}
	return a.getLimiter(a.clientKey(r)).Allow()
}

func (a *BearerAuth) clientKey(r *http.Request) string {
	if token, ok := bearerToken(r); ok {
		return token
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *BearerAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
