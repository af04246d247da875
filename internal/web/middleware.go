package web

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"hubdeck/internal/constants"
	"hubdeck/internal/logger"

	"github.com/google/uuid"
	"github.com/rs/cors"
)

// TokenCookie carries the session JWT for browser clients.
const TokenCookie = "hub_token"

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the WebSocket upgrade pass through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Log.Error().
					Str("request_id", GetRequestID(r)).
					Interface("panic", err).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")
				FailErr(w, r, ErrInternalError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware honours an incoming X-Request-ID, otherwise mints one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		r = SetRequestID(r, id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the IP address from RemoteAddr, handling IPv6 correctly.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SanitizePath redacts the token query parameter for logging.
func SanitizePath(r *http.Request) string {
	q := r.URL.Query()
	if q.Get("token") == "" {
		return r.URL.RequestURI()
	}
	q.Set("token", "[REDACTED]")
	return r.URL.Path + "?" + q.Encode()
}

func RequestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		ev := logger.Log.Info()
		if sw.status >= 500 {
			ev = logger.Log.Error()
		}
		ev.Str("request_id", GetRequestID(r)).
			Str("method", r.Method).
			Str("path", SanitizePath(r)).
			Str("ip", ClientIP(r)).
			Int("status", sw.status).
			Dur("latency", time.Since(start)).
			Msg("http request")
	})
}

// CORSMiddleware allows only the configured origins; an empty list means
// same-origin only.
func CORSMiddleware(origins []string) Middleware {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	if len(origins) == 0 {
		c = cors.New(cors.Options{AllowOriginFunc: func(string) bool { return false }})
	}
	return c.Handler
}

func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// MaxBodySizeMiddleware caps request bodies at maxBytes.
func MaxBodySizeMiddleware(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	limit   int
	window  time.Duration
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter starts a janitor goroutine that exits with ctx.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{buckets: make(map[string]*rateBucket), limit: limit, window: window}
	go func() {
		ticker := time.NewTicker(2 * window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.mu.Lock()
				for k, b := range rl.buckets {
					if now.After(b.resetAt) {
						delete(rl.buckets, k)
					}
				}
				rl.mu.Unlock()
			}
		}
	}()
	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		rl.buckets[key] = &rateBucket{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if b.count >= rl.limit {
		return false
	}
	b.count++
	return true
}

// RateLimit wraps one route; the key is client IP plus path.
func RateLimit(rl *RateLimiter) Wrapper {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !rl.Allow(ip + " " + r.URL.Path) {
				logger.Log.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("request rate limited")
				FailErr(w, r, ErrRateLimited)
				return
			}
			next(w, r)
		}
	}
}

// AuditFunc writes one audit row from the auth layer.
type AuditFunc func(action, result, detail, ip string, p Principal)

// TokenFromRequest looks at the Authorization header, then the session
// cookie, then (for WebSocket upgrades) the token query parameter.
func TokenFromRequest(r *http.Request, allowQuery bool) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// AuthMiddleware requires a valid JWT on every /api/ path except skip.
func AuthMiddleware(secret string, skip []string, audit AuditFunc) Middleware {
	skipSet := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipSet[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if skipSet[path] || !strings.HasPrefix(path, "/api/") || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr := TokenFromRequest(r, false)
			if tokenStr == "" {
				if audit != nil {
					audit(constants.ActionAuthFailed, "failed", "no token: "+path, ClientIP(r), Principal{})
				}
				FailErr(w, r, ErrUnauthorized)
				return
			}
			claims, err := ValidateJWT(tokenStr, secret)
			if err != nil {
				if audit != nil {
					audit(constants.ActionAuthFailed, "failed", "invalid or expired token: "+path, ClientIP(r), Principal{})
				}
				FailErr(w, r, ErrTokenExpired)
				return
			}
			next.ServeHTTP(w, SetPrincipal(r, claims.Principal()))
		})
	}
}

// RequireAdmin rejects read-only accounts.
func RequireAdmin(audit AuditFunc) Wrapper {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r)
			if p.Role != constants.RoleAdmin {
				if audit != nil {
					audit(constants.ActionForbidden, "denied", "admin required: "+r.URL.Path, ClientIP(r), p)
				}
				FailErr(w, r, ErrForbidden)
				return
			}
			next(w, r)
		}
	}
}
