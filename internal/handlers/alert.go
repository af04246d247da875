package handlers

import (
	"net/http"

	"hubdeck/internal/database"
	"hubdeck/internal/web"
)

// AlertHandler lists and acknowledges badge-growth alerts.
type AlertHandler struct {
	alertRepo *database.BadgeAlertRepo
}

func NewAlertHandler() *AlertHandler {
	return &AlertHandler{alertRepo: database.NewBadgeAlertRepo()}
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	pq := web.ParsePageQuery(r)
	filter := database.AlertFilter{
		Page:        pq.Page,
		PageSize:    pq.PageSize,
		SortBy:      pq.SortBy,
		SortOrder:   pq.SortOrder,
		Badge:       r.URL.Query().Get("badge"),
		UnackedOnly: web.QueryBool(r, "unacked"),
	}

	alerts, total, err := h.alertRepo.List(filter)
	if err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	web.OKPage(w, r, alerts, total, pq.Page, pq.PageSize)
}

// AckAll acknowledges every pending alert.
func (h *AlertHandler) AckAll(w http.ResponseWriter, r *http.Request) {
	if err := h.alertRepo.AckAll(); err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	web.OK(w, r, map[string]string{"message": "ok"})
}

func (h *AlertHandler) Unacked(w http.ResponseWriter, r *http.Request) {
	n, err := h.alertRepo.CountUnacked()
	if err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	web.OK(w, r, map[string]int64{"unacked": n})
}
