package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

type PageData struct {
	List     any   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, http.StatusOK, envelope(r, true, data))
}

func OKPage(w http.ResponseWriter, r *http.Request, list any, total int64, page, pageSize int) {
	OK(w, r, PageData{List: list, Total: total, Page: page, PageSize: pageSize})
}

func Fail(w http.ResponseWriter, r *http.Request, code string, message string, httpStatus int) {
	resp := envelope(r, false, nil)
	resp.ErrorCode = code
	resp.Message = message
	writeJSON(w, httpStatus, resp)
}

// DecodeJSON reads a JSON request body into v. An empty body leaves v
// untouched and is not an error.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func envelope(r *http.Request, ok bool, data any) Response {
	return Response{
		Success:   ok,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: GetRequestID(r),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
