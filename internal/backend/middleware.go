package backend

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// requireAuth validates the bearer token and stashes the claims in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		claims, err := s.tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) (*tokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*tokenClaims)
	return claims, ok
}

// recovery converts panics into 500 responses so nothing escapes a handler
// as an unhandled crash.
func recovery(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic", "panic", rec, "path", r.URL.Path)
					writeAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// requestLogger emits one structured line per request.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration_ms", time.Since(started).Milliseconds(),
			)
		})
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimit applies a per-client request budget. Auth routes share the
// budget with everything else; this is a development backend.
func rateLimit(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		rpm = 600
	}

	var mu sync.Mutex
	clients := map[string]*clientLimiter{}

	get := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		if c, ok := clients[ip]; ok {
			c.lastSeen = time.Now()
			return c.limiter
		}

		if len(clients) > 1000 {
			cutoff := time.Now().Add(-10 * time.Minute)
			for key, c := range clients {
				if c.lastSeen.Before(cutoff) {
					delete(clients, key)
				}
			}
		}

		created := &clientLimiter{
			limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
			lastSeen: time.Now(),
		}
		clients[ip] = created
		return created.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !get(clientIP(r)).Allow() {
				w.Header().Set("Retry-After", "60")
				writeAPIError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		if i := strings.Index(forwarded, ","); i > 0 {
			return strings.TrimSpace(forwarded[:i])
		}
		return forwarded
	}
	if host := strings.TrimSpace(r.Header.Get("X-Real-IP")); host != "" {
		return host
	}
	if i := strings.LastIndex(r.RemoteAddr, ":"); i > 0 {
		return r.RemoteAddr[:i]
	}
	return r.RemoteAddr
}
