package handler

import (
	"net/http"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/infra/observability"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/schema"
	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// defaultMaxUploadSize bounds a multipart body when the caller passes no limit.
const defaultMaxUploadSize = 32 << 20

// NewRouter creates the HTTP router with all routes and middleware.
// Uploads larger than maxUploadSize bytes are rejected.
func NewRouter(svc *service.Consolidator, metrics *observability.Metrics, maxUploadSize int64, logger *zap.Logger) http.Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/kinds", listKindsHandler())
		r.Get("/metrics/engine", engineMetricsHandler(metrics))

		r.Post("/consolidate", consolidateAllHandler(svc, metrics, maxUploadSize, logger))
		r.Post("/consolidate/{kind}", consolidateHandler(svc, metrics, maxUploadSize, logger))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kinds := make([]string, len(domain.Kinds))
		for i, k := range domain.Kinds {
			kinds[i] = string(k)
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: "healthy", Kinds: kinds})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func engineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}

// ============================================================
// Schema discovery
// ============================================================

type columnResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type kindResponse struct {
	Kind    domain.Kind      `json:"kind"`
	Prefix  string           `json:"prefix"`
	Sheets  [][]string       `json:"sheets,omitempty"`
	Columns []columnResponse `json:"columns"`
}

func listKindsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specs := schema.Specs()
		resp := make([]kindResponse, 0, len(specs))
		for _, s := range specs {
			cols := s.Kind.Columns()
			kr := kindResponse{
				Kind:    s.Kind,
				Prefix:  s.Prefix,
				Sheets:  s.Sheets,
				Columns: make([]columnResponse, len(cols)),
			}
			for i, c := range cols {
				kr.Columns[i] = columnResponse{Name: c.Name, Type: c.Type.String()}
			}
			resp = append(resp, kr)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
