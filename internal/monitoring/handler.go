// Package monitoring exposes process health, bus counters and history, neuron
// status and Prometheus metrics over HTTP.
package monitoring

import (
	"cmp"
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sante/internal/eventbus"
	"sante/internal/neuron"
	"sante/internal/platform/middleware"
	"sante/internal/rbac"
	"sante/pkg/platform/httputil"

	dErrors "sante/pkg/domain-errors"
)

const (
	maxHistoryLimit = 1000
	checkTimeout    = 2 * time.Second
)

// Bus is the read side of the event bus.
type Bus interface {
	Metrics() eventbus.MetricsSnapshot
	History(filter eventbus.HistoryFilter) []eventbus.Event
}

// Neurons reports the health of registered neurons.
type Neurons interface {
	Health() []neuron.Health
}

// Check probes one dependency (database, cache).
type Check func(ctx context.Context) error

type Handler struct {
	bus          Bus
	neurons      Neurons
	jwtValidator middleware.JWTValidator
	logger       *slog.Logger
	gatherer     prometheus.Gatherer
	checks       map[string]Check
}

type Option func(*Handler)

// WithGatherer serves /metrics from g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.gatherer = g
	}
}

// WithCheck adds a dependency probe to /health.
func WithCheck(name string, check Check) Option {
	return func(h *Handler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

func New(bus Bus, neurons Neurons, jwtValidator middleware.JWTValidator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		bus:          bus,
		neurons:      neurons,
		jwtValidator: jwtValidator,
		logger:       logger,
		checks:       make(map[string]Check),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the monitoring routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.handleHealth)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequirePermissions(h.logger, rbac.PermViewSystemMetrics))
		r.Get("/bus/metrics", h.handleBusMetrics)
		r.Get("/bus/history", h.handleBusHistory)
		r.Get("/neurons", h.handleNeurons)
	})
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Neurons int               `json:"active_neurons"`
}

// handleHealth is public; failing probes report "down" without detail.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}
	for _, n := range h.neurons.Health() {
		if n.Status == neuron.StateActive {
			resp.Neurons++
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) handleBusMetrics(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.bus.Metrics())
}

type historyResponse struct {
	Events []eventbus.Event `json:"events"`
	Count  int              `json:"count"`
}

func (h *Handler) handleBusHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := parseHistoryFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	evts := h.bus.History(filter)
	if evts == nil {
		evts = []eventbus.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, historyResponse{Events: evts, Count: len(evts)})
}

// parseHistoryFilter reads type, since (RFC 3339 or Unix milliseconds) and limit.
func parseHistoryFilter(r *http.Request) (eventbus.HistoryFilter, error) {
	q := r.URL.Query()
	filter := eventbus.HistoryFilter{Type: q.Get("type"), Limit: 100}

	if raw := q.Get("since"); raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.Since = time.UnixMilli(ms)
		} else if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.Since = t
		} else {
			return filter, dErrors.New(dErrors.CodeBadRequest, "since must be RFC 3339 or Unix milliseconds")
		}
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
		}
		filter.Limit = min(limit, maxHistoryLimit)
	}
	return filter, nil
}

func (h *Handler) handleNeurons(w http.ResponseWriter, _ *http.Request) {
	health := h.neurons.Health()
	slices.SortFunc(health, func(a, b neuron.Health) int {
		return cmp.Compare(a.Name, b.Name)
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"neurons": health})
}
