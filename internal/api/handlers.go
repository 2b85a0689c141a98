package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"portgraph/internal/models"
	"portgraph/internal/service"
)

// Pinger is the slice of the storage interface the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains HTTP handlers for the dependency-graph API
type Handlers struct {
	graphService service.ServiceInterface
	pinger       Pinger
	version      string
}

// NewHandlers creates a new handlers instance
func NewHandlers(graphService service.ServiceInterface, pinger Pinger, version string) *Handlers {
	return &Handlers{
		graphService: graphService,
		pinger:       pinger,
		version:      version,
	}
}

// GetBuildDependencyGraph handles graph requests
// POST /api/v1/graph
func (h *Handlers) GetBuildDependencyGraph(w http.ResponseWriter, r *http.Request) {
	var req models.GraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	response, err := h.graphService.GetBuildDependencyGraph(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// ListDependencies handles affected-package list requests
// POST /api/v1/dependencies
func (h *Handlers) ListDependencies(w http.ResponseWriter, r *http.Request) {
	var req models.DependencyListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	response, err := h.graphService.ListDependencies(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// SaveSnapshot handles snapshot ingestion
// PUT /api/v1/snapshots
// Requires an ingest token when authentication is enabled
func (h *Handlers) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var snapshot models.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	response, err := h.graphService.SaveSnapshot(r.Context(), &snapshot)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	slog.Info("snapshot ingested",
		"sysroot_path", response.SysrootPath,
		"package_count", response.PackageCount,
		"request_id", RequestIDFrom(r.Context()))

	h.writeJSONResponse(w, http.StatusCreated, response)
}

// GetSnapshot handles snapshot retrieval
// GET /api/v1/snapshot?sysroot_path=...
func (h *Handlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	sysrootPath := r.URL.Query().Get("sysroot_path")
	if sysrootPath == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "sysroot_path query parameter is required")
		return
	}

	snapshot, err := h.graphService.GetSnapshot(r.Context(), sysrootPath)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, snapshot)
}

// ListSnapshots handles snapshot enumeration
// GET /api/v1/snapshots
func (h *Handlers) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	response, err := h.graphService.ListSnapshots(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// DeleteSnapshot handles snapshot removal
// DELETE /api/v1/snapshot?sysroot_path=...
// Requires an ingest token when authentication is enabled
func (h *Handlers) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	sysrootPath := r.URL.Query().Get("sysroot_path")
	if sysrootPath == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "sysroot_path query parameter is required")
		return
	}

	if err := h.graphService.DeleteSnapshot(r.Context(), sysrootPath); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	slog.Info("snapshot deleted",
		"sysroot_path", sysrootPath,
		"request_id", RequestIDFrom(r.Context()))

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := &models.HealthResponse{
		Status:    models.StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}

	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			response.AddComponent("storage", models.StatusUnhealthy, err.Error())
		} else {
			response.AddComponent("storage", models.StatusHealthy, "")
		}
	}
	response.AddComponent("api", models.StatusHealthy, "")

	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeServiceError maps a service error to its HTTP form. Unknown error
// types become opaque 500s; their detail goes to the log, not the client.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.StatusCode >= http.StatusInternalServerError {
			slog.Error("request failed",
				"error", err,
				"path", r.URL.Path,
				"request_id", RequestIDFrom(r.Context()))
		}
		h.writeErrorResponse(w, r, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}

	slog.Error("request failed",
		"error", err,
		"path", r.URL.Path,
		"request_id", RequestIDFrom(r.Context()))
	h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing more to send.
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	errorResp := models.NewErrorResponse(message, errorCode)
	errorResp.RequestID = RequestIDFrom(r.Context())

	h.writeJSONResponse(w, statusCode, errorResp)
}
