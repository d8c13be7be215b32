// Package httpapi exposes the registry over HTTP: listing registered
// definitions, calling procedures, and reading views through declared
// filter sets.
package httpapi

import (
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"procstore/internal/catalog"
	"procstore/internal/ctxlog"
	"procstore/internal/filterset"
)

// Handler serves the registry API.
type Handler struct {
	registry *catalog.Registry
	filters  map[string]*filterset.FilterSet
	auth     *Authenticator
}

// Option configures a Handler.
type Option func(*Handler)

// WithViewFilters registers the filter set accepted by GET /api/views/{name}.
// Views without a registered filter set are not readable over HTTP.
func WithViewFilters(view string, fs *filterset.FilterSet) Option {
	return func(h *Handler) { h.filters[view] = fs }
}

// WithAuth enables bearer-JWT authentication on the /api tree.
func WithAuth(a *Authenticator) Option {
	return func(h *Handler) { h.auth = a }
}

// New constructs a Handler over the registry.
func New(registry *catalog.Registry, opts ...Option) *Handler {
	h := &Handler{
		registry: registry,
		filters:  make(map[string]*filterset.FilterSet),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the full route table, including /metrics and /debug/vars.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	api := http.NewServeMux()
	api.HandleFunc("GET /api/procedures", h.handleList)
	api.HandleFunc("POST /api/procedures/{name}", h.handleCall)
	api.HandleFunc("GET /api/views/{name}", h.handleView)

	var apiHandler http.Handler = api
	if h.auth.Enabled() {
		apiHandler = h.auth.Middleware(api)
	}
	mux.Handle("/api/", apiHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /debug/vars", expvar.Handler())
	return logRequests(mux)
}

type procedureInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	names := h.registry.List()
	infos := make([]procedureInfo, 0, len(names))
	for _, name := range names {
		proc, err := h.registry.Get(name)
		if err != nil {
			continue
		}
		infos = append(infos, procedureInfo{Name: name, Kind: string(proc.Kind())})
	}
	writeJSON(w, http.StatusOK, map[string]any{"procedures": infos})
}

type callRequest struct {
	Args []any  `json:"args"`
	Ret  string `json:"ret"`
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	proc, err := h.registry.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req callRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
			return
		}
	}
	ret, err := catalog.ParseRetMode(req.Ret)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if ret == catalog.RetCursor {
		writeError(w, http.StatusBadRequest, errors.New("ret mode cursor is not available over HTTP"))
		return
	}

	res, err := proc.Call(r.Context(), catalog.CallOptions{Args: req.Args, Ret: ret})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeResult(w, ret, res)
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	proc, err := h.registry.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if proc.Kind() != catalog.KindView {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%s is not a view", name))
		return
	}
	fs, ok := h.filters[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("view %s has no registered filter set", name))
		return
	}

	query := r.URL.Query()
	ret, err := catalog.ParseRetMode(query.Get("ret"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if ret == catalog.RetCursor {
		writeError(w, http.StatusBadRequest, errors.New("ret mode cursor is not available over HTTP"))
		return
	}
	query.Del("ret")

	clause, err := fs.Build(query)
	if err != nil {
		var fieldErr *filterset.FieldError
		if errors.As(err, &fieldErr) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	res, err := proc.Call(r.Context(), catalog.CallOptions{
		Ret:     ret,
		Filters: clause.Where,
		Params:  clause.Params,
		OrderBy: clause.OrderBy,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeResult(w, ret, res)
}

func writeResult(w http.ResponseWriter, ret catalog.RetMode, res *catalog.Result) {
	if ret == catalog.RetAll {
		rows := res.Rows
		if rows == nil {
			rows = []catalog.Row{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"row": res.Row})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		ctxlog.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
