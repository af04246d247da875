package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"hubdeck/internal/badge"
	"hubdeck/internal/constants"
	"hubdeck/internal/database"
	"hubdeck/internal/seen"
	"hubdeck/internal/web"
)

// Broadcaster is satisfied by *web.WSHub.
type Broadcaster interface {
	Broadcast(channel, msgType string, data any)
}

// BadgeHandler serves the sidebar counters.
type BadgeHandler struct {
	refresher *badge.Refresher
	runs      *database.RefreshRunRepo
	hub       Broadcaster
}

func NewBadgeHandler(refresher *badge.Refresher, hub Broadcaster) *BadgeHandler {
	return &BadgeHandler{
		refresher: refresher,
		runs:      database.NewRefreshRunRepo(),
		hub:       hub,
	}
}

// Get returns the current snapshot without touching the marketplace.
func (h *BadgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	web.OK(w, r, h.refresher.Store().Snapshot())
}

// Refresh runs a full mount cycle and returns its report.
func (h *BadgeHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := seen.WithActor(r.Context(), actorOf(r))
	rep, err := h.refresher.Refresh(ctx, badge.TriggerMount)
	if errors.Is(err, badge.ErrBusy) {
		web.FailErr(w, r, web.ErrBadgeRefreshBusy)
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(constants.ChannelBadges, constants.MsgBadgesRefreshed, rep)
	}
	web.OK(w, r, map[string]interface{}{
		"counts": rep.Counts,
		"report": rep,
	})
}

// Runs lists recent refresh cycles, newest first.
func (h *BadgeHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	runs, err := h.runs.Recent(limit)
	if err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	web.OK(w, r, runs)
}

func actorOf(r *http.Request) seen.Actor {
	p := web.GetPrincipal(r)
	return seen.Actor{UserID: p.UserID, Username: p.Username, IP: web.ClientIP(r)}
}
