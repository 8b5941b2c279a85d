package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	platformmetrics "tipjar/internal/platform/metrics"
	request "tipjar/pkg/platform/middleware/request"
	"tipjar/pkg/platform/middleware/requesttime"
)

// Registrar mounts a feature's routes.
type Registrar interface {
	Register(r chi.Router)
}

type RouterConfig struct {
	Logger   *slog.Logger
	Metrics  *platformmetrics.HTTP
	Gatherer prometheus.Gatherer
	Health   http.Handler
	Routes   []Registrar
}

// NewRouter wires the shared middleware chain, the operational endpoints and
// every feature's routes. Handlers stay free of transport concerns.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	if cfg.Metrics != nil {
		r.Use(request.Latency(cfg.Metrics))
	}

	if cfg.Health != nil {
		r.Method(http.MethodGet, "/healthz", cfg.Health)
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	for _, route := range cfg.Routes {
		route.Register(r)
	}
	return r
}
