package handlers

import (
	"net/http"
	"strings"

	"hubdeck/internal/constants"
	"hubdeck/internal/database"
	"hubdeck/internal/logger"
	"hubdeck/internal/web"
	"hubdeck/internal/webconfig"
)

const (
	minPollSeconds = 10
	maxConcurrency = 64
)

// ServerConfigHandler reads and writes the service config file. Changes
// take effect on the next start.
type ServerConfigHandler struct {
	auditRepo *database.AuditLogRepo
}

func NewServerConfigHandler() *ServerConfigHandler {
	return &ServerConfigHandler{auditRepo: database.NewAuditLogRepo()}
}

type serverConfigPayload struct {
	Server webconfig.ServerConfig `json:"server"`
	Badge  webconfig.BadgeConfig  `json:"badge"`
	Alert  webconfig.AlertConfig  `json:"alert"`
}

// GET /api/v1/server-config
func (h *ServerConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := webconfig.Load()
	if err != nil {
		web.FailErr(w, r, web.ErrConfigLoad.Wrap(err))
		return
	}
	web.OK(w, r, serverConfigPayload{Server: cfg.Server, Badge: cfg.Badge, Alert: cfg.Alert})
}

// PUT /api/v1/server-config
func (h *ServerConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload serverConfigPayload
	if err := web.DecodeJSON(r, &payload); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	if msg := validateServerConfig(&payload); msg != "" {
		web.FailErr(w, r, web.ErrInvalidParam, msg)
		return
	}

	cfg, err := webconfig.Load()
	if err != nil {
		web.FailErr(w, r, web.ErrConfigLoad.Wrap(err))
		return
	}
	cfg.Server = payload.Server
	cfg.Badge = payload.Badge
	cfg.Alert = payload.Alert
	if err := webconfig.Save(cfg); err != nil {
		web.FailErr(w, r, web.ErrSettingsSave)
		return
	}

	_ = h.auditRepo.Create(&database.AuditLog{
		UserID:   web.GetUserID(r),
		Username: web.GetUsername(r),
		Action:   constants.ActionSettingsUpdate,
		Result:   "success",
		Detail:   "server config",
		IP:       web.ClientIP(r),
	})
	logger.Config.Info().
		Str("bind", cfg.Server.Bind).
		Int("port", cfg.Server.Port).
		Int("poll_interval_seconds", cfg.Badge.PollIntervalSeconds).
		Msg("server config updated, restart required")

	web.OK(w, r, map[string]any{
		"server":  cfg.Server,
		"badge":   cfg.Badge,
		"alert":   cfg.Alert,
		"restart": true,
	})
}

// validateServerConfig normalizes p in place and returns a message for the
// first invalid field.
func validateServerConfig(p *serverConfigPayload) string {
	if p.Server.Port < 1 || p.Server.Port > 65535 {
		return "port must be between 1 and 65535"
	}
	p.Server.Bind = strings.TrimSpace(p.Server.Bind)
	if p.Server.Bind == "" {
		p.Server.Bind = "127.0.0.1"
	}
	origins := p.Server.CORSOrigins[:0:0]
	for _, o := range p.Server.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	p.Server.CORSOrigins = origins

	if p.Badge.PollIntervalSeconds < 0 || (p.Badge.PollIntervalSeconds > 0 && p.Badge.PollIntervalSeconds < minPollSeconds) {
		return "poll_interval_seconds must be 0 or at least 10"
	}
	if p.Badge.MarkConcurrency < 1 || p.Badge.MarkConcurrency > maxConcurrency {
		return "mark_concurrency must be between 1 and 64"
	}
	if p.Badge.TicketConcurrency < 1 || p.Badge.TicketConcurrency > maxConcurrency {
		return "ticket_concurrency must be between 1 and 64"
	}
	if p.Alert.MinIncrease < 1 {
		p.Alert.MinIncrease = 1
	}
	return ""
}
