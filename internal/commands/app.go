package commands

import (
	"context"
	"net/http"
	"time"

	"hubdeck/internal/badge"
	"hubdeck/internal/constants"
	"hubdeck/internal/database"
	"hubdeck/internal/handlers"
	"hubdeck/internal/logger"
	"hubdeck/internal/marketplace"
	"hubdeck/internal/notify"
	"hubdeck/internal/seen"
	"hubdeck/internal/version"
	"hubdeck/internal/web"
	"hubdeck/internal/webconfig"
)

const (
	maxBodyBytes  = 1 << 20
	keepRuns      = 500
	pruneInterval = time.Hour
)

// app holds the long-lived services behind the HTTP API. The database must
// be initialized before newApp is called.
type app struct {
	cfg       webconfig.Config
	market    *marketplace.Client
	store     *badge.Store
	refresher *badge.Refresher
	marker    *seen.Marker
	notifier  *notify.Manager
	hub       *web.WSHub
	poller    *badge.Poller
	limiter   *web.RateLimiter
	runs      *database.RefreshRunRepo
	audit     *database.AuditLogRepo
	started   time.Time
}

func newApp(ctx context.Context, cfg webconfig.Config) *app {
	a := &app{
		cfg:     cfg,
		market:  marketplace.NewClient(cfg.Marketplace, cfg.MarketTimeout()),
		store:   badge.NewStore(),
		hub:     web.NewWSHub(cfg.Server.CORSOrigins),
		limiter: web.NewRateLimiter(ctx, 10, time.Minute),
		runs:    database.NewRefreshRunRepo(),
		audit:   database.NewAuditLogRepo(),
		started: time.Now(),
	}

	a.notifier = notify.NewManager(cfg.Alert, database.NewBadgeAlertRepo())
	if err := a.notifier.Reload(database.NewSettingRepo()); err != nil {
		logger.Notify.Error().Err(err).Msg("failed to load notification channels")
	}

	a.refresher = badge.NewRefresher(a.market, a.store, badge.Options{
		MarkSeen:          cfg.Badge.MarkSeenOnRefresh,
		MarkConcurrency:   cfg.Badge.MarkConcurrency,
		TicketConcurrency: cfg.Badge.TicketConcurrency,
	}).WithHistory(a.runs, a.audit).WithAlerter(a.notifier)
	a.marker = seen.NewMarker(cfg.Badge.MarkConcurrency, a.audit)
	a.poller = badge.NewPoller(a.refresher, cfg.PollInterval())

	a.store.OnChange(func(s badge.Snapshot) {
		a.hub.Broadcast(constants.ChannelBadges, constants.MsgBadgesUpdated, s)
	})
	a.hub.OnSubscribe(func(channel string) (web.WSMessage, bool) {
		if channel != constants.ChannelBadges {
			return web.WSMessage{}, false
		}
		return web.WSMessage{Type: constants.MsgBadgesUpdated, Channel: channel, Data: a.store.Snapshot()}, true
	})
	return a
}

// start launches the background loops; they stop when ctx ends.
func (a *app) start(ctx context.Context) {
	go a.hub.Run(ctx)
	go a.poller.Start(ctx)
	go a.pruneRuns(ctx)
}

func (a *app) stop() {
	a.poller.Stop()
}

func (a *app) pruneRuns(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := a.runs.Prune(keepRuns); err != nil {
				logger.DB.Warn().Err(err).Msg("refresh run prune failed")
			} else if n > 0 {
				logger.DB.Debug().Int64("deleted", n).Msg("old refresh runs pruned")
			}
		}
	}
}

// handler builds the router and wraps it in the middleware chain.
func (a *app) handler() http.Handler {
	auditFn := handlers.AuditFunc(a.audit)
	adminOnly := web.RequireAdmin(auditFn)

	authHandler := handlers.NewAuthHandler(&a.cfg)
	badgeHandler := handlers.NewBadgeHandler(a.refresher, a.hub)
	reviewHandler := handlers.NewReviewHandler(a.market, a.marker, a.refresher)
	notifyHandler := handlers.NewNotifyHandler(a.notifier)
	alertHandler := handlers.NewAlertHandler()
	auditHandler := handlers.NewAuditHandler()
	userHandler := handlers.NewUserHandler()
	exportHandler := handlers.NewExportHandler()
	serverConfigHandler := handlers.NewServerConfigHandler()

	router := web.NewRouter()
	api := router.Group("/api/v1")
	admin := api.Group("", adminOnly)

	api.GET("/health", a.health)
	api.POST("/auth/login", web.RateLimit(a.limiter)(authHandler.Login))
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.Me)
	api.PUT("/auth/password", userHandler.ChangePassword)

	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Create)
	admin.DELETE("/users/{id}", userHandler.Delete)

	api.GET("/badges", badgeHandler.Get)
	api.GET("/badges/runs", badgeHandler.Runs)
	admin.POST("/badges/refresh", badgeHandler.Refresh)

	api.GET("/review/tickets/unread", reviewHandler.TicketsUnread)
	api.GET("/review/{kind}", reviewHandler.List)
	admin.POST("/review/{kind}/seen", reviewHandler.MarkSeen)

	admin.GET("/notify/config", notifyHandler.GetConfig)
	admin.PUT("/notify/config", notifyHandler.UpdateConfig)
	admin.POST("/notify/test", notifyHandler.TestSend)

	api.GET("/alerts", alertHandler.List)
	api.GET("/alerts/unacked", alertHandler.Unacked)
	admin.POST("/alerts/ack", alertHandler.AckAll)

	admin.GET("/server-config", serverConfigHandler.Get)
	admin.PUT("/server-config", serverConfigHandler.Update)

	admin.GET("/audit-logs", auditHandler.List)
	admin.GET("/export/audit-logs", exportHandler.AuditLogs)
	admin.GET("/export/alerts", exportHandler.Alerts)
	admin.GET("/export/runs", exportHandler.Runs)

	api.GET("/ws", a.hub.HandleWS(a.cfg.Auth.JWTSecret))

	skip := []string{"/api/v1/health", "/api/v1/auth/login", "/api/v1/ws"}
	return web.Chain(router,
		web.RecoveryMiddleware,
		web.RequestIDMiddleware,
		web.RequestLogMiddleware,
		web.CORSMiddleware(a.cfg.Server.CORSOrigins),
		web.SecurityHeadersMiddleware,
		web.MaxBodySizeMiddleware(maxBodyBytes),
		web.AuthMiddleware(a.cfg.Auth.JWTSecret, skip, auditFn),
	)
}

func (a *app) health(w http.ResponseWriter, r *http.Request) {
	web.OK(w, r, map[string]interface{}{
		"status":         "ok",
		"version":        version.Version,
		"uptime_seconds": int64(time.Since(a.started).Seconds()),
		"polling":        a.poller.IsRunning(),
		"ws_clients":     a.hub.ClientCount(),
	})
}
