// Package models - API response types and error handling.
// Consistent JSON structure across endpoints; optional fields use
// omitempty; errors carry a stable machine-readable code next to the
// human-readable message.
package models

import (
	"time"
)

// PackageRef is the wire form of one package identity: three scalar
// fields, with any nonzero revision folded into the comparable version
// string (e.g. "2.33-r7").
type PackageRef struct {
	Category string `json:"category,omitempty"`
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
}

// PackageDepRecord names one package, its direct dependencies, and the
// source-tree paths associated with it.
type PackageDepRecord struct {
	Package     PackageRef   `json:"package"`
	DepPackages []PackageRef `json:"dep_packages"`
	SourcePaths []string     `json:"source_paths"`
}

// GraphResponse is the graph report for one build target. SDKPackageDeps
// is present only when an SDK-rooted subgraph exists and was requested.
type GraphResponse struct {
	Target         string             `json:"target"`
	SysrootPath    string             `json:"sysroot_path"`
	PackageDeps    []PackageDepRecord `json:"package_deps"`
	SDKPackageDeps []PackageDepRecord `json:"sdk_package_deps,omitempty"`
}

// DependencyListResponse is a flat, deduplicated package list.
type DependencyListResponse struct {
	SysrootPath string       `json:"sysroot_path"`
	Packages    []PackageRef `json:"packages"`
}

// SnapshotListResponse enumerates the sysroots with stored snapshots.
type SnapshotListResponse struct {
	Sysroots []SnapshotInfo `json:"sysroots"`
}

// SnapshotInfo is the summary form of a stored snapshot.
type SnapshotInfo struct {
	SysrootPath  string    `json:"sysroot_path"`
	Board        string    `json:"board,omitempty"`
	PackageCount int       `json:"package_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// SnapshotSaveResponse acknowledges an ingested snapshot.
type SnapshotSaveResponse struct {
	SysrootPath  string `json:"sysroot_path"`
	PackageCount int    `json:"package_count"`
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response with the current timestamp.
func NewErrorResponse(message, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now().UTC(),
	}
}

// HealthResponse reports overall service health plus per-component state.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth is one component's health entry.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Component status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// AddComponent records one component's health, downgrading the overall
// status if the component is not healthy.
func (h *HealthResponse) AddComponent(name, status, message string) {
	if h.Components == nil {
		h.Components = make(map[string]ComponentHealth)
	}
	h.Components[name] = ComponentHealth{Status: status, Message: message}
	if status != StatusHealthy && h.Status == StatusHealthy {
		h.Status = StatusDegraded
	}
}

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeBadRequest       = "BAD_REQUEST"        // 400: invalid request format
	ErrorCodeInvalidRequest   = "INVALID_REQUEST"    // 400: invalid request data
	ErrorCodeUnauthorized     = "UNAUTHORIZED"       // 401: authentication required
	ErrorCodeNotFound         = "NOT_FOUND"          // 404: resource doesn't exist
	ErrorCodeSnapshotNotFound = "SNAPSHOT_NOT_FOUND" // 404: no snapshot for sysroot
	ErrorCodeUnresolvable     = "UNRESOLVABLE_REFERENCE" // 422: query names unknown package or malformed depdata
	ErrorCodeValidation       = "VALIDATION_ERROR"   // 422: input validation failed
	ErrorCodeInternalError    = "INTERNAL_ERROR"     // 500: server-side error
	ErrorCodeRateLimited      = "RATE_LIMIT_EXCEEDED" // 429: too many requests
)
