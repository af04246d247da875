package handlers

import (
	"net/http"
	"time"

	"hubdeck/internal/constants"
	"hubdeck/internal/database"
	"hubdeck/internal/logger"
	"hubdeck/internal/web"
	"hubdeck/internal/webconfig"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxFailedAttempts = 5
	lockDuration      = 15 * time.Minute
)

type AuthHandler struct {
	userRepo  *database.UserRepo
	auditRepo *database.AuditLogRepo
	cfg       *webconfig.Config
}

func NewAuthHandler(cfg *webconfig.Config) *AuthHandler {
	return &AuthHandler{
		userRepo:  database.NewUserRepo(),
		auditRepo: database.NewAuditLogRepo(),
		cfg:       cfg,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expires_at"`
	User      loginUserInfo `json:"user"`
}

type loginUserInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	if req.Username == "" || req.Password == "" {
		web.FailErr(w, r, web.ErrEmptyCredentials)
		return
	}
	ip := web.ClientIP(r)

	user, err := h.userRepo.FindByUsername(req.Username)
	if err != nil {
		h.audit(&database.AuditLog{Username: req.Username, Action: constants.ActionLoginFailed, Result: "failed", Detail: "user not found", IP: ip})
		logger.Auth.Warn().Str("username", req.Username).Str("ip", ip).Msg("login failed: user not found")
		web.FailErr(w, r, web.ErrInvalidPassword)
		return
	}

	if user.LockedUntil != nil && user.LockedUntil.After(time.Now().UTC()) {
		h.audit(&database.AuditLog{UserID: user.ID, Username: user.Username, Action: constants.ActionLoginFailed, Result: "failed", Detail: "account locked", IP: ip})
		logger.Auth.Warn().Str("username", req.Username).Str("ip", ip).Msg("login failed: account locked")
		web.FailErr(w, r, web.ErrAccountLocked)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		_ = h.userRepo.IncrementFailedAttempts(user.ID)
		h.audit(&database.AuditLog{UserID: user.ID, Username: user.Username, Action: constants.ActionLoginFailed, Result: "failed", Detail: "wrong password", IP: ip})
		if user.FailedAttempts+1 >= maxFailedAttempts {
			_ = h.userRepo.LockUntil(user.ID, time.Now().UTC().Add(lockDuration))
			h.audit(&database.AuditLog{UserID: user.ID, Username: user.Username, Action: constants.ActionAccountLocked, Result: "locked", Detail: "too many failed attempts", IP: ip})
			logger.Auth.Warn().Str("username", req.Username).Str("ip", ip).Msg("account locked")
		}
		logger.Auth.Warn().Str("username", req.Username).Str("ip", ip).Msg("login failed: wrong password")
		web.FailErr(w, r, web.ErrInvalidPassword)
		return
	}

	_ = h.userRepo.ResetFailedAttempts(user.ID)

	p := web.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}
	token, expiresAt, err := web.GenerateJWT(p, h.cfg.Auth.JWTSecret, h.cfg.JWTExpireDuration())
	if err != nil {
		logger.Auth.Error().Err(err).Msg("JWT generation failed")
		web.FailErr(w, r, web.ErrLoginFailed)
		return
	}

	h.audit(&database.AuditLog{UserID: user.ID, Username: user.Username, Action: constants.ActionLogin, Result: "success", IP: ip})
	logger.Auth.Info().Str("username", user.Username).Str("ip", ip).Msg("user logged in")

	http.SetCookie(w, &http.Cookie{
		Name:     web.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	web.OK(w, r, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      loginUserInfo{ID: user.ID, Username: user.Username, Role: user.Role},
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userRepo.FindByID(web.GetUserID(r))
	if err != nil {
		web.FailErr(w, r, web.ErrUnauthorized)
		return
	}
	web.OK(w, r, loginUserInfo{ID: user.ID, Username: user.Username, Role: user.Role})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.audit(&database.AuditLog{
		UserID:   web.GetUserID(r),
		Username: web.GetUsername(r),
		Action:   constants.ActionLogout,
		Result:   "success",
		IP:       web.ClientIP(r),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     web.TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-1 * time.Hour),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	web.OK(w, r, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) audit(entry *database.AuditLog) {
	_ = h.auditRepo.Create(entry)
}

// AuditFunc adapts the audit repo to the middleware's audit callback.
func AuditFunc(repo *database.AuditLogRepo) web.AuditFunc {
	return func(action, result, detail, ip string, p web.Principal) {
		_ = repo.Create(&database.AuditLog{
			UserID:   p.UserID,
			Username: p.Username,
			Action:   action,
			Result:   result,
			Detail:   detail,
			IP:       ip,
		})
	}
}
