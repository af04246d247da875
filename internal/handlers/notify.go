package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"hubdeck/internal/constants"
	"hubdeck/internal/database"
	"hubdeck/internal/logger"
	"hubdeck/internal/notify"
	"hubdeck/internal/web"
)

const secretMask = "********"

// NotifyHandler manages notification channel configuration.
type NotifyHandler struct {
	settingRepo *database.SettingRepo
	auditRepo   *database.AuditLogRepo
	manager     *notify.Manager
}

func NewNotifyHandler(manager *notify.Manager) *NotifyHandler {
	return &NotifyHandler{
		settingRepo: database.NewSettingRepo(),
		auditRepo:   database.NewAuditLogRepo(),
		manager:     manager,
	}
}

// GetConfig returns the stored channel settings with secrets masked.
func (h *NotifyHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	all, err := h.settingRepo.GetAll()
	if err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	result := make(map[string]string, len(notify.SettingKeys))
	for _, key := range notify.SettingKeys {
		v := all[key]
		if v != "" && notify.SecretKeys[key] {
			v = secretMask
		}
		result[key] = v
	}
	web.OK(w, r, map[string]interface{}{
		"config":          result,
		"active_channels": h.manager.ChannelNames(),
	})
}

// UpdateConfig saves known keys and reloads the channels. A masked secret
// sent back unchanged keeps the stored value.
func (h *NotifyHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var items map[string]string
	if err := web.DecodeJSON(r, &items); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}

	allowed := make(map[string]bool, len(notify.SettingKeys))
	for _, k := range notify.SettingKeys {
		allowed[k] = true
	}
	filtered := make(map[string]string)
	var keys []string
	for k, v := range items {
		if !allowed[k] || (notify.SecretKeys[k] && v == secretMask) {
			continue
		}
		filtered[k] = strings.TrimSpace(v)
		keys = append(keys, k)
	}
	if len(filtered) == 0 {
		web.FailErr(w, r, web.ErrInvalidParam, "no known settings")
		return
	}

	sort.Strings(keys)

	if err := h.settingRepo.SetBatch(filtered); err != nil {
		logger.Notify.Error().Err(err).Msg("failed to save notification settings")
		web.FailErr(w, r, web.ErrSettingsSave)
		return
	}
	if err := h.manager.Reload(h.settingRepo); err != nil {
		logger.Notify.Error().Err(err).Msg("failed to reload notification channels")
	}

	_ = h.auditRepo.Create(&database.AuditLog{
		UserID:   web.GetUserID(r),
		Username: web.GetUsername(r),
		Action:   constants.ActionSettingsUpdate,
		Detail:   "notification config updated: " + strings.Join(keys, ","),
		Result:   "success",
		IP:       web.ClientIP(r),
	})

	logger.Notify.Info().Str("user", web.GetUsername(r)).Msg("notification config updated")
	web.OK(w, r, map[string]interface{}{
		"message":         "ok",
		"active_channels": h.manager.ChannelNames(),
	})
}

// TestSend sends a test message to every configured channel.
func (h *NotifyHandler) TestSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := web.DecodeJSON(r, &req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	if req.Message == "" {
		req.Message = "HubDeck notification test"
	}

	err := h.manager.Send(r.Context(), req.Message)
	switch {
	case errors.Is(err, notify.ErrNoChannels):
		web.FailErr(w, r, web.ErrNotifyNoChannels)
	case err != nil:
		logger.Notify.Warn().Err(err).Msg("test notification failed")
		web.FailErr(w, r, web.ErrNotifySendFailed, err.Error())
	default:
		web.OK(w, r, map[string]interface{}{"message": "ok", "channels": h.manager.ChannelNames()})
	}
}
