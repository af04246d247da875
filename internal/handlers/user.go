package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"hubdeck/internal/constants"
	"hubdeck/internal/database"
	"hubdeck/internal/logger"
	"hubdeck/internal/web"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// UserHandler manages the back-office accounts that may use HubDeck.
type UserHandler struct {
	userRepo  *database.UserRepo
	auditRepo *database.AuditLogRepo
}

func NewUserHandler() *UserHandler {
	return &UserHandler{
		userRepo:  database.NewUserRepo(),
		auditRepo: database.NewAuditLogRepo(),
	}
}

type UserResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Locked    bool   `json:"locked"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u database.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Locked:    u.LockedUntil != nil && u.LockedUntil.After(time.Now().UTC()),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.List()
	if err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	web.OK(w, r, resp)
}

// Create adds an account; role defaults to readonly.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := web.DecodeJSON(r, &req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		web.FailErr(w, r, web.ErrEmptyCredentials)
		return
	}
	if len(req.Password) < minPasswordLen {
		web.FailErr(w, r, web.ErrWeakPassword)
		return
	}
	switch req.Role {
	case "":
		req.Role = constants.RoleReadonly
	case constants.RoleAdmin, constants.RoleReadonly:
	default:
		web.FailErr(w, r, web.ErrInvalidRole)
		return
	}

	if existing, _ := h.userRepo.FindByUsername(req.Username); existing != nil {
		web.FailErr(w, r, web.ErrUserExists)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		web.FailErr(w, r, web.ErrEncrypt)
		return
	}
	user := &database.User{Username: req.Username, PasswordHash: string(hash), Role: req.Role}
	if err := h.userRepo.Create(user); err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}

	h.audit(r, constants.ActionUserCreate, "created user "+req.Username+" ("+req.Role+")")
	logger.Auth.Info().Str("username", req.Username).Str("role", req.Role).Msg("user created")
	web.OK(w, r, toUserResponse(*user))
}

// Delete removes an account. Admins cannot delete themselves or the last admin.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		web.FailErr(w, r, web.ErrInvalidParam)
		return
	}
	if uint(id) == web.GetUserID(r) {
		web.FailErr(w, r, web.ErrUserSelfDelete)
		return
	}

	user, err := h.userRepo.FindByID(uint(id))
	if err != nil {
		web.FailErr(w, r, web.ErrUserNotFound)
		return
	}
	if user.Role == constants.RoleAdmin {
		if n, err := h.userRepo.CountByRole(constants.RoleAdmin); err != nil || n <= 1 {
			web.FailErr(w, r, web.ErrLastAdmin)
			return
		}
	}
	if err := h.userRepo.Delete(user.ID); err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}

	h.audit(r, constants.ActionUserDelete, "deleted user "+user.Username)
	logger.Auth.Info().Str("username", user.Username).Msg("user deleted")
	web.OK(w, r, map[string]string{"message": "ok"})
}

// ChangePassword lets the caller replace their own password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := web.DecodeJSON(r, &req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		web.FailErr(w, r, web.ErrWeakPassword)
		return
	}

	user, err := h.userRepo.FindByID(web.GetUserID(r))
	if err != nil {
		web.FailErr(w, r, web.ErrUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		web.FailErr(w, r, web.ErrInvalidPassword)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		web.FailErr(w, r, web.ErrEncrypt)
		return
	}
	if err := h.userRepo.UpdatePassword(user.ID, string(hash)); err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}

	h.audit(r, constants.ActionPasswordChange, "")
	web.OK(w, r, map[string]string{"message": "ok"})
}

func (h *UserHandler) audit(r *http.Request, action, detail string) {
	_ = h.auditRepo.Create(&database.AuditLog{
		UserID:   web.GetUserID(r),
		Username: web.GetUsername(r),
		Action:   action,
		Result:   "success",
		Detail:   detail,
		IP:       web.ClientIP(r),
	})
}
