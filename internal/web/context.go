package web

import (
	"context"
	"net/http"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	principalKey contextKey = "principal"
)

// Principal is the authenticated admin behind a request.
type Principal struct {
	UserID   uint
	Username string
	Role     string
}

func SetRequestID(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), requestIDKey, id))
}

func GetRequestID(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func SetPrincipal(r *http.Request, p Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey, p))
}

// GetPrincipal returns the zero Principal for unauthenticated requests.
func GetPrincipal(r *http.Request) Principal {
	p, _ := r.Context().Value(principalKey).(Principal)
	return p
}

func GetUserID(r *http.Request) uint { return GetPrincipal(r).UserID }

func GetUsername(r *http.Request) string { return GetPrincipal(r).Username }

func GetRole(r *http.Request) string { return GetPrincipal(r).Role }
