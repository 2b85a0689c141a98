package service

import (
	"context"

	"portgraph/internal/models"
)

// ServiceInterface defines the interface for dependency-graph service
// operations
type ServiceInterface interface {
	// GetBuildDependencyGraph builds and reports the dependency graph for
	// one stored snapshot
	GetBuildDependencyGraph(ctx context.Context, req *models.GraphRequest) (*models.GraphResponse, error)

	// ListDependencies computes the flat affected-package list for one
	// stored snapshot
	ListDependencies(ctx context.Context, req *models.DependencyListRequest) (*models.DependencyListResponse, error)

	// SaveSnapshot validates and stores a resolved-dependency snapshot
	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) (*models.SnapshotSaveResponse, error)

	// GetSnapshot retrieves the stored snapshot for a sysroot path
	GetSnapshot(ctx context.Context, sysrootPath string) (*models.Snapshot, error)

	// ListSnapshots enumerates the stored snapshots
	ListSnapshots(ctx context.Context) (*models.SnapshotListResponse, error)

	// DeleteSnapshot removes the stored snapshot for a sysroot path
	DeleteSnapshot(ctx context.Context, sysrootPath string) error
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
