package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"worksheetd/internal/history"
	"worksheetd/internal/manager"
	"worksheetd/internal/worksheet"
	"worksheetd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Create(name string, cells []string) (*worksheet.Worksheet, error)
	Get(id string) (*worksheet.Worksheet, error)
	Delete(id string) error
	Name(id string) string
	WorksheetStatuses() []types.WorksheetStatus
	History(ctx context.Context, id string, limit int) ([]history.Entry, error)
	Status() types.StatusResponse
	SanityCheck() manager.SanityReport
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		origins, methods, headers := corsDefaults()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		}))
	}

	h := &handlers{svc: svc}
	r.Route("/worksheets", func(r chi.Router) {
		r.Post("/", h.createWorksheet)
		r.Get("/", h.listWorksheets)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getWorksheet)
			r.Delete("/", h.deleteWorksheet)
			r.Get("/check", h.check)
			r.Post("/interrupt", h.interrupt)
			r.Post("/quit", h.quit)
			r.Post("/restart", h.restart)
			r.Get("/history", h.history)
			r.Post("/cells", h.newCell)
			r.Route("/cells/{cid}", func(r chi.Router) {
				r.Put("/", h.editCell)
				r.Delete("/", h.deleteCell)
				r.Post("/evaluate", h.evaluate)
				r.Post("/cancel", h.cancel)
				r.Post("/introspect", h.introspect)
			})
		})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/sanity", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.SanityCheck())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into v. An empty body is accepted when
// optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	if optional && r.ContentLength == 0 {
		return true
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Oversized bodies are reported as plain bad requests.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
