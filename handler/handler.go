// Package handler provides the HTTP handlers for the admissions API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stevemurr/kinder-admissions/database"
	"github.com/stevemurr/kinder-admissions/metrics"
	"github.com/stevemurr/kinder-admissions/schema"
)

// Options carries the optional dependencies of a Handler.
type Options struct {
	Logger *slog.Logger
	// Metrics and Gatherer default to a private registry when nil.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	// DatabaseURLSet and DatabaseNameSet are reported by GET /test.
	DatabaseURLSet  bool
	DatabaseNameSet bool
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	db      *database.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	opts    Options
	router  chi.Router

	applications string
}

// New creates a Handler and wires up all routes.
func New(db *database.Client, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		reg := prometheus.NewRegistry()
		opts.Metrics = metrics.New(reg)
		opts.Gatherer = reg
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	h := &Handler{
		db:           db,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		opts:         opts,
		router:       chi.NewRouter(),
		applications: mustCollection(schema.KindApplication),
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.Use(middleware.RequestID)
	h.router.Use(h.logRequests)
	h.router.Use(middleware.Recoverer)

	h.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	h.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	// Liveness / diagnostics
	h.router.Get("/", h.root)
	h.router.Get("/api/hello", h.hello)
	h.router.Get("/test", h.diagnose)
	h.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.opts.Gatherer, promhttp.HandlerOpts{}))

	// Applications
	h.router.Post("/api/applications", h.submitApplication)
	h.router.Get("/api/applications", h.listApplications)
}

func mustCollection(k schema.Kind) string {
	c, err := schema.CollectionFor(k)
	if err != nil {
		panic(err)
	}
	return c
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// ---------- status endpoints ----------

const (
	rootMessage  = "Nursery & Kindergarten Backend Running"
	helloMessage = "Welcome to the Nursery & Kindergarten API"
)

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
}

func (h *Handler) hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": helloMessage})
}
