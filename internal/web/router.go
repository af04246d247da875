package web

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Route is one registered method and path, kept for listing.
type Route struct {
	Method string
	Path   string
}

// Wrapper decorates a single route, e.g. RequireAdmin.
type Wrapper func(http.HandlerFunc) http.HandlerFunc

type routeTable struct {
	mu    sync.RWMutex
	paths map[string]map[string]http.HandlerFunc // path -> method -> handler
}

// Router dispatches on path (with ServeMux wildcards such as {kind}) and
// then on method, answering unknown paths and methods with the JSON envelope.
type Router struct {
	mux    *http.ServeMux
	table  *routeTable
	prefix string
	wrap   []Wrapper
}

func NewRouter() *Router {
	rt := &Router{
		mux:   http.NewServeMux(),
		table: &routeTable{paths: make(map[string]map[string]http.HandlerFunc)},
	}
	rt.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		FailErr(w, r, ErrNotFound)
	})
	return rt
}

// Group returns a router sharing the same table whose routes are prefixed
// and wrapped by wrap, outermost first.
func (rt *Router) Group(prefix string, wrap ...Wrapper) *Router {
	return &Router{
		mux:    rt.mux,
		table:  rt.table,
		prefix: rt.prefix + prefix,
		wrap:   append(append([]Wrapper(nil), rt.wrap...), wrap...),
	}
}

func (rt *Router) Handle(method, path string, handler http.HandlerFunc) {
	full := rt.prefix + path
	for i := len(rt.wrap) - 1; i >= 0; i-- {
		handler = rt.wrap[i](handler)
	}

	rt.table.mu.Lock()
	defer rt.table.mu.Unlock()

	methods, exists := rt.table.paths[full]
	if !exists {
		methods = make(map[string]http.HandlerFunc)
		rt.table.paths[full] = methods
		rt.mux.HandleFunc(full, rt.dispatch(full))
	}
	methods[method] = handler
}

func (rt *Router) dispatch(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt.table.mu.RLock()
		h, ok := rt.table.paths[path][r.Method]
		if !ok && r.Method == http.MethodHead {
			h, ok = rt.table.paths[path][http.MethodGet]
		}
		rt.table.mu.RUnlock()

		switch {
		case ok:
			h(w, r)
		case r.Method == http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", strings.Join(rt.methods(path), ", "))
			FailErr(w, r, ErrMethodNotAllowed)
		}
	}
}

func (rt *Router) methods(path string) []string {
	rt.table.mu.RLock()
	defer rt.table.mu.RUnlock()
	out := make([]string, 0, len(rt.table.paths[path]))
	for m := range rt.table.paths[path] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (rt *Router) GET(path string, handler http.HandlerFunc)  { rt.Handle(http.MethodGet, path, handler) }
func (rt *Router) POST(path string, handler http.HandlerFunc) { rt.Handle(http.MethodPost, path, handler) }
func (rt *Router) PUT(path string, handler http.HandlerFunc)  { rt.Handle(http.MethodPut, path, handler) }
func (rt *Router) DELETE(path string, handler http.HandlerFunc) {
	rt.Handle(http.MethodDelete, path, handler)
}

// Routes lists every registered route, sorted by path then method.
func (rt *Router) Routes() []Route {
	rt.table.mu.RLock()
	defer rt.table.mu.RUnlock()
	var out []Route
	for p, methods := range rt.table.paths {
		for m := range methods {
			out = append(out, Route{Method: m, Path: p})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}
