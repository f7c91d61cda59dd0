package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/corevisor/internal/controlplane/api/auth"
	"github.com/marmos91/corevisor/internal/controlplane/api/handlers"
	apiMiddleware "github.com/marmos91/corevisor/internal/controlplane/api/middleware"
	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/lifecycle"
	"github.com/marmos91/corevisor/pkg/metrics"
)

// requestTimeout bounds every request except the lifecycle operations, which
// wait for the core app and are bounded by the server write timeout.
const requestTimeout = 30 * time.Second

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /metrics - Prometheus metrics (when enabled)
//   - /api/v1/core/* - Core app lifecycle (admin only)
//   - /api/v1/services/* - Service directory (admin and add-on tokens)
func NewRouter(rt *runtime.Runtime, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(rt.Store(), rt.Lifecycle())

	// Health routes - unauthenticated
	r.Route("/health", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if metrics.IsEnabled() {
		r.Handle("/metrics", metrics.Handler())
	}

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	coreHandler := handlers.NewCoreHandler(rt.Lifecycle())
	serviceHandler := handlers.NewServiceHandler(rt.Services())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiMiddleware.JWTAuth(jwtService))

		r.Route("/core", func(r chi.Router) {
			r.Use(apiMiddleware.RequireAdmin())

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))
				r.Get("/info", coreHandler.Info)
				r.Post("/options", coreHandler.SetOptions)
				r.Get("/stats", coreHandler.Stats)
				r.Post("/check", coreHandler.Check)
				r.Get("/jobs/last", coreHandler.LastJob)
				r.Get("/jobs/{id}", coreHandler.Job)
			})

			r.Post("/update", coreHandler.Operation(lifecycle.OpUpdate))
			r.Post("/start", coreHandler.Operation(lifecycle.OpStart))
			r.Post("/stop", coreHandler.Operation(lifecycle.OpStop))
			r.Post("/restart", coreHandler.Operation(lifecycle.OpRestart))
			r.Post("/rebuild", coreHandler.Operation(lifecycle.OpRebuild))
		})

		r.Route("/services", func(r chi.Router) {
			r.Use(apiMiddleware.RequireRole(auth.RoleAdmin, auth.RoleAddon))
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/", serviceHandler.List)
			r.Get("/{slug}", serviceHandler.Get)
			r.Get("/{slug}/schema", serviceHandler.Schema)
			r.Post("/{slug}", serviceHandler.Set)
			r.Delete("/{slug}", serviceHandler.Delete)
		})
	})

	return r
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/") || path == "/metrics"
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck and scrape requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}

		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
