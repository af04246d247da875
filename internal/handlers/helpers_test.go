package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hubdeck/internal/database"
	"hubdeck/internal/web"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope[T any] struct {
	Success   bool   `json:"success"`
	Data      T      `json:"data"`
	ErrorCode string `json:"error_code"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func createTestUser(t *testing.T, username, password, role string) *database.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &database.User{Username: username, PasswordHash: string(hash), Role: role}
	require.NoError(t, database.NewUserRepo().Create(user))
	return user
}

var adminPrincipal = web.Principal{UserID: 1, Username: "admin", Role: "admin"}

// request builds a request carrying p, as AuthMiddleware would.
func request(method, target, body string, p web.Principal) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return web.SetPrincipal(req, p)
}

func auditActions(t *testing.T) []string {
	t.Helper()
	logs, _, err := database.NewAuditLogRepo().List(database.AuditFilter{Page: 1, PageSize: 100, SortBy: "id", SortOrder: "asc"})
	require.NoError(t, err)
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.Action
	}
	return out
}
