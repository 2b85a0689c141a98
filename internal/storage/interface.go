package storage

import (
	"context"
	"portgraph/internal/models"
)

// Storage defines the interface for snapshot persistence and retrieval.
// It provides a clean abstraction that can be implemented by different
// backends such as JSON files, embedded databases, or PostgreSQL.
//
// Snapshots are keyed by sysroot path; saving a snapshot for a sysroot
// that already has one replaces it.
type Storage interface {
	// SaveSnapshot stores or replaces the snapshot for its sysroot path
	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error

	// GetSnapshot retrieves the snapshot for a sysroot path.
	// Returns ErrSnapshotNotFound if none is stored.
	GetSnapshot(ctx context.Context, sysrootPath string) (*models.Snapshot, error)

	// ListSnapshots returns summaries of all stored snapshots,
	// ordered by sysroot path
	ListSnapshots(ctx context.Context) ([]*models.SnapshotInfo, error)

	// DeleteSnapshot removes the snapshot for a sysroot path.
	// Returns ErrSnapshotNotFound if none is stored.
	DeleteSnapshot(ctx context.Context, sysrootPath string) error

	// Ping verifies the storage backend is reachable and operational
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (json, memory, postgres, sqlite)
	Type string `json:"type" yaml:"type"`

	// Path is used for file-based storage backends
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// CacheTTL specifies how long to cache data in memory
	CacheTTL string `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`
}
