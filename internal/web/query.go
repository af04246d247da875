package web

import (
	"net/http"
	"strconv"
)

const maxPageSize = 100

type PageQuery struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ParsePageQuery reads page, page_size, sort_by and sort_order. Invalid
// values fall back to page 1, 20 per page, newest first.
func ParsePageQuery(r *http.Request) PageQuery {
	v := r.URL.Query()
	q := PageQuery{
		Page:      positiveInt(v.Get("page"), 1),
		PageSize:  positiveInt(v.Get("page_size"), 20),
		SortBy:    v.Get("sort_by"),
		SortOrder: "desc",
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if o := v.Get("sort_order"); o == "asc" {
		q.SortOrder = o
	}
	return q
}

// QueryBool treats 1, true and yes as true.
func QueryBool(r *http.Request, key string) bool {
	switch r.URL.Query().Get(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
