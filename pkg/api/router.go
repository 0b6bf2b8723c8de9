package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/pkg/api/handlers"
)

// NewRouter creates the chi router with middleware and routes.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe, 503 when a mirror is failed
//   - GET /api/v1/mirrors - Status of every mirror
//   - GET /api/v1/mirrors/{name} - Status of one mirror
func NewRouter(registry handlers.Registry) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(registry)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if registry != nil {
		mirrorHandler := handlers.NewMirrorHandler(registry)
		r.Route("/api/v1/mirrors", func(r chi.Router) {
			r.Get("/", mirrorHandler.List)
			r.Get("/{name}", mirrorHandler.Get)
		})
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.NotFound(w, "Route not found")
	})

	return r
}

// requestLogger logs every request through the internal logger: the start
// at DEBUG, the completion at INFO.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			logger.KeyRequest, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyRoute, r.URL.Path,
			logger.KeyRemote, r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			logger.KeyRequest, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyRoute, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeySize, ww.BytesWritten(),
			logger.KeyDurationMs, float64(time.Since(start).Microseconds())/1000,
		)
	})
}
