package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"portgraph/internal/models"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health" &&
					r.URL.Path != "/metrics"
			}),
		))
	}
}

// WithRateLimiter adds rate limiting middleware to the router.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(r *mux.Router) {
		r.Use(middleware)
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	for _, opt := range opts {
		opt(router)
	}

	router.Use(RequestIDMiddleware)
	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Read queries stay open even with auth enabled.
	api.HandleFunc("/graph", handlers.GetBuildDependencyGraph).Methods("POST")
	api.HandleFunc("/dependencies", handlers.ListDependencies).Methods("POST")
	api.HandleFunc("/snapshots", handlers.ListSnapshots).Methods("GET")
	api.HandleFunc("/snapshot", handlers.GetSnapshot).Methods("GET")

	if config.Security.EnableAuth {
		writeAPI := api.PathPrefix("").Subrouter()
		writeAPI.Use(IngestAuth(config.Security.IngestTokens))
		writeAPI.HandleFunc("/snapshots", handlers.SaveSnapshot).Methods("PUT")
		writeAPI.HandleFunc("/snapshot", handlers.DeleteSnapshot).Methods("DELETE")
	} else {
		api.HandleFunc("/snapshots", handlers.SaveSnapshot).Methods("PUT")
		api.HandleFunc("/snapshot", handlers.DeleteSnapshot).Methods("DELETE")
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods("GET")

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		errorResp := models.NewErrorResponse("Method not allowed", models.ErrorCodeInvalidRequest)
		json.NewEncoder(w).Encode(errorResp)
	})

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"request_id", RequestIDFrom(r.Context()))
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered", "error", err, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				errorResp := models.NewErrorResponse("Internal server error", models.ErrorCodeInternalError)
				json.NewEncoder(w).Encode(errorResp)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
