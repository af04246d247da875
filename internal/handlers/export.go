package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"hubdeck/internal/database"
	"hubdeck/internal/web"
)

const (
	exportMaxRows  = 5000
	exportPageSize = 200
)

// ExportHandler streams audit logs, badge alerts and refresh runs as JSON or CSV.
type ExportHandler struct {
	auditRepo *database.AuditLogRepo
	alertRepo *database.BadgeAlertRepo
	runRepo   *database.RefreshRunRepo
}

func NewExportHandler() *ExportHandler {
	return &ExportHandler{
		auditRepo: database.NewAuditLogRepo(),
		alertRepo: database.NewBadgeAlertRepo(),
		runRepo:   database.NewRefreshRunRepo(),
	}
}

// collectPages walks fetch page by page until a short page or exportMaxRows.
func collectPages[T any](fetch func(page int) ([]T, error)) ([]T, error) {
	var out []T
	for page := 1; len(out) < exportMaxRows; page++ {
		rows, err := fetch(page)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		if len(rows) < exportPageSize {
			break
		}
	}
	if len(out) > exportMaxRows {
		out = out[:exportMaxRows]
	}
	return out, nil
}

func (h *ExportHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	logs, err := collectPages(func(page int) ([]database.AuditLog, error) {
		rows, _, err := h.auditRepo.List(database.AuditFilter{
			Page:      page,
			PageSize:  exportPageSize,
			Action:    q.Get("action"),
			StartTime: q.Get("start_time"),
			EndTime:   q.Get("end_time"),
		})
		return rows, err
	})
	if err != nil {
		web.FailErr(w, r, web.ErrExportFailed)
		return
	}

	writeExport(w, r, "audit_logs", logs,
		[]string{"ID", "UserID", "Username", "Action", "Result", "Detail", "IP", "CreatedAt"},
		func(l database.AuditLog) []string {
			return []string{
				strconv.FormatUint(uint64(l.ID), 10),
				strconv.FormatUint(uint64(l.UserID), 10),
				l.Username,
				l.Action,
				l.Result,
				l.Detail,
				l.IP,
				l.CreatedAt.Format(time.RFC3339),
			}
		})
}

func (h *ExportHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	badgeKey := r.URL.Query().Get("badge")
	alerts, err := collectPages(func(page int) ([]database.BadgeAlert, error) {
		rows, _, err := h.alertRepo.List(database.AlertFilter{
			Page:     page,
			PageSize: exportPageSize,
			Badge:    badgeKey,
		})
		return rows, err
	})
	if err != nil {
		web.FailErr(w, r, web.ErrExportFailed)
		return
	}

	writeExport(w, r, "badge_alerts", alerts,
		[]string{"ID", "Badge", "From", "To", "Message", "Notified", "Acked", "CreatedAt"},
		func(a database.BadgeAlert) []string {
			return []string{
				strconv.FormatUint(uint64(a.ID), 10),
				a.Badge,
				strconv.Itoa(a.From),
				strconv.Itoa(a.To),
				a.Message,
				strconv.FormatBool(a.Notified),
				strconv.FormatBool(a.Acked),
				a.CreatedAt.Format(time.RFC3339),
			}
		})
}

func (h *ExportHandler) Runs(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runRepo.Recent(exportMaxRows)
	if err != nil {
		web.FailErr(w, r, web.ErrExportFailed)
		return
	}

	writeExport(w, r, "refresh_runs", runs,
		[]string{"RunID", "Trigger", "Users", "Sellers", "Products", "PendingProducts", "Orders", "Payments", "UnreadConversations", "Marked", "MarkFailed", "DurationMs", "Errors", "CreatedAt"},
		func(run database.RefreshRun) []string {
			return []string{
				run.RunID,
				run.Trigger,
				strconv.Itoa(run.Users),
				strconv.Itoa(run.Sellers),
				strconv.Itoa(run.Products),
				strconv.Itoa(run.PendingProducts),
				strconv.Itoa(run.Orders),
				strconv.Itoa(run.Payments),
				strconv.Itoa(run.UnreadConversations),
				strconv.Itoa(run.Marked),
				strconv.Itoa(run.MarkFailed),
				strconv.FormatInt(run.DurationMs, 10),
				run.Errors,
				run.CreatedAt.Format(time.RFC3339),
			}
		})
}

// writeExport answers with ?format=csv or JSON (default) as an attachment.
func writeExport[T any](w http.ResponseWriter, r *http.Request, name string, rows []T, header []string, record func(T) []string) {
	filename := fmt.Sprintf("%s_%s", name, time.Now().Format("20060102_150405"))

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename+".csv")
		writer := csv.NewWriter(w)
		writer.Write(header)
		for _, row := range rows {
			writer.Write(record(row))
		}
		writer.Flush()
		return
	}

	if rows == nil {
		rows = []T{}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename+".json")
	json.NewEncoder(w).Encode(rows)
}
