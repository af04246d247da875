package web

import (
	"fmt"
	"net/http"
)

// AppError is an API error with a stable machine-readable code. Message is
// the English text returned alongside it.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Wrap returns a copy of e carrying err as its cause.
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// FailErr writes e as the response. Optional detail is appended to the message.
func FailErr(w http.ResponseWriter, r *http.Request, e *AppError, detail ...string) {
	msg := e.Message
	if len(detail) > 0 && detail[0] != "" {
		msg = msg + ": " + detail[0]
	}
	Fail(w, r, e.Code, msg, e.HTTPStatus)
}

// Auth
var (
	ErrUnauthorized     = &AppError{"AUTH_UNAUTHORIZED", "not logged in or session expired", 401, nil}
	ErrForbidden        = &AppError{"AUTH_FORBIDDEN", "permission denied", 403, nil}
	ErrInvalidPassword  = &AppError{"AUTH_INVALID_PASSWORD", "invalid username or password", 401, nil}
	ErrAccountLocked    = &AppError{"AUTH_ACCOUNT_LOCKED", "account locked, try again later", 423, nil}
	ErrTokenExpired     = &AppError{"AUTH_TOKEN_EXPIRED", "session expired, please login again", 401, nil}
	ErrEmptyCredentials = &AppError{"AUTH_EMPTY_CREDENTIALS", "username and password required", 400, nil}
	ErrLoginFailed      = &AppError{"AUTH_LOGIN_FAILED", "login failed", 500, nil}
)

// Generic
var (
	ErrNotFound         = &AppError{"NOT_FOUND", "resource not found", 404, nil}
	ErrMethodNotAllowed = &AppError{"METHOD_NOT_ALLOWED", "method not allowed", 405, nil}
	ErrInvalidParam     = &AppError{"INVALID_PARAM", "invalid request parameter", 400, nil}
	ErrInvalidBody      = &AppError{"INVALID_BODY", "invalid request body", 400, nil}
	ErrInternalError    = &AppError{"INTERNAL_ERROR", "internal server error", 500, nil}
	ErrRateLimited      = &AppError{"RATE_LIMITED", "too many requests, please try later", 429, nil}
	ErrDBQuery          = &AppError{"DB_QUERY_FAILED", "database query failed", 500, nil}
	ErrExportFailed     = &AppError{"EXPORT_FAILED", "export failed", 500, nil}
)

// Accounts
var (
	ErrUserNotFound   = &AppError{"USER_NOT_FOUND", "user not found", 404, nil}
	ErrUserExists     = &AppError{"USER_EXISTS", "username already exists", 409, nil}
	ErrUserSelfDelete = &AppError{"USER_SELF_DELETE", "cannot delete your own account", 400, nil}
	ErrLastAdmin      = &AppError{"USER_LAST_ADMIN", "cannot delete the last admin", 400, nil}
	ErrInvalidRole    = &AppError{"USER_INVALID_ROLE", "role must be admin or readonly", 400, nil}
	ErrWeakPassword   = &AppError{"USER_WEAK_PASSWORD", "password must be at least 6 characters", 400, nil}
	ErrEncrypt        = &AppError{"ENCRYPT_FAILED", "password hashing failed", 500, nil}
)

// Marketplace and badges
var (
	ErrMarketUnavailable = &AppError{"MARKET_UNAVAILABLE", "marketplace API unavailable", 502, nil}
	ErrUnknownEntity     = &AppError{"UNKNOWN_ENTITY", "unknown review entity", 404, nil}
	ErrBadgeRefreshBusy  = &AppError{"BADGE_REFRESH_BUSY", "a badge refresh is already running", 409, nil}
)

// Notifications
var (
	ErrNotifyNoChannels = &AppError{"NOTIFY_NO_CHANNELS", "no notification channels configured", 400, nil}
	ErrNotifySendFailed = &AppError{"NOTIFY_SEND_FAILED", "notification send failed", 502, nil}
	ErrSettingsSave     = &AppError{"SETTINGS_SAVE_FAILED", "settings save failed", 500, nil}
	ErrConfigLoad       = &AppError{"CONFIG_LOAD_FAILED", "failed to read service config", 500, nil}
)
