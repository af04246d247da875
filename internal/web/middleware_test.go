package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) { OK(w, r, GetPrincipal(r).Username) }

type auditCall struct {
	action, result, detail string
}

func recordAudit(calls *[]auditCall) AuditFunc {
	return func(action, result, detail, ip string, p Principal) {
		*calls = append(*calls, auditCall{action, result, detail})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(okHandler), mw("a"), mw("b"), mw("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()

	assert.NotPanics(t, func() { h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ErrInternalError.Code, decodeResponse(t, w).ErrorCode)
}

func TestRequestIDMiddleware(t *testing.T) {
	h := RequestIDMiddleware(http.HandlerFunc(okHandler))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, decodeResponse(t, w).RequestID)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-123")
	h.ServeHTTP(w, req)
	assert.Equal(t, "upstream-123", w.Header().Get("X-Request-ID"))
}

func TestSanitizePath(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/ws?token=secret&x=1", nil)
	assert.NotContains(t, SanitizePath(r), "secret")
	assert.Contains(t, SanitizePath(r), "x=1")

	r = httptest.NewRequest(http.MethodGet, "/api/v1/badges?page=2", nil)
	assert.Equal(t, "/api/v1/badges?page=2", SanitizePath(r))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::1]:5555"
	assert.Equal(t, "::1", ClientIP(r))
	r.RemoteAddr = "10.0.0.2:80"
	assert.Equal(t, "10.0.0.2", ClientIP(r))
}

func TestAuthMiddleware(t *testing.T) {
	token, _, err := GenerateJWT(testAdmin, testSecret, time.Hour)
	require.NoError(t, err)
	expired, _, err := GenerateJWT(testAdmin, testSecret, -time.Hour)
	require.NoError(t, err)

	var calls []auditCall
	h := AuthMiddleware(testSecret, []string{"/api/v1/auth/login"}, recordAudit(&calls))(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		path   string
		setup  func(r *http.Request)
		status int
		user   string
	}{
		{"skip path", "/api/v1/auth/login", nil, 200, ""},
		{"non api path", "/index.html", nil, 200, ""},
		{"no token", "/api/v1/badges", nil, 401, ""},
		{"bearer", "/api/v1/badges", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, 200, "admin"},
		{"cookie", "/api/v1/badges", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) }, 200, "admin"},
		{"expired", "/api/v1/badges", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, 401, ""},
		{"query token ignored", "/api/v1/badges?token=" + token, nil, 401, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.setup != nil {
				tt.setup(req)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == 200 {
				assert.Equal(t, tt.user, decodeResponse(t, w).Data)
			}
		})
	}
	assert.Len(t, calls, 3)
	for _, c := range calls {
		assert.Equal(t, "auth.failed", c.action)
	}
}

func TestRequireAdmin(t *testing.T) {
	var calls []auditCall
	h := RequireAdmin(recordAudit(&calls))(okHandler)

	w := httptest.NewRecorder()
	req := SetPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/badges/refresh", nil), Principal{UserID: 2, Username: "viewer", Role: "readonly"})
	h(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.Len(t, calls, 1)
	assert.Equal(t, "forbidden", calls[0].action)

	w = httptest.NewRecorder()
	h(w, SetPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), testAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, 50*time.Millisecond)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys are independent")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("a"), "window resets")
}

func TestRateLimit_Wrapper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := RateLimit(NewRateLimiter(ctx, 1, time.Minute))(okHandler)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware([]string{"https://admin.example.com"})(http.HandlerFunc(okHandler))

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/badges", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://admin.example.com")
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = preflight("https://evil.example.com")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_NoOrigins(t *testing.T) {
	h := CORSMiddleware(nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/badges", nil)
	req.Header.Set("Origin", "https://anything.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeadersMiddleware(http.HandlerFunc(okHandler)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestMaxBodySizeMiddleware(t *testing.T) {
	var readErr error
	h := MaxBodySizeMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Error(t, readErr)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123")))
	assert.NoError(t, readErr)
}

func TestRequestLogMiddleware_KeepsStatus(t *testing.T) {
	h := RequestLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FailErr(w, r, ErrNotFound)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
