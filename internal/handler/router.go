package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/metrics"
	"github.com/prn-tf/lendery/internal/repository"
)

// RouterConfig contains the dependencies for the API router.
type RouterConfig struct {
	UserHandler    *UserHandler
	BookHandler    *BookHandler
	Sessions       *SessionMiddleware
	DatabaseHealth repository.DatabaseHealth
	Logger         zerolog.Logger
}

// NewRouter assembles the full API router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))
	r.Use(metrics.Middleware)
	r.Use(cfg.Sessions.Resolve)

	r.Get("/health", healthHandler(cfg.DatabaseHealth))

	r.Mount("/user_api", cfg.UserHandler.Routes())
	r.Mount("/book_api", cfg.BookHandler.Routes())

	return r
}

// healthHandler reports service and database health.
func healthHandler(db repository.DatabaseHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// requestLogger logs each request with method, path, status and timing.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}
