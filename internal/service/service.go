// Package service holds the dependency-graph business logic: it loads
// stored snapshots, assembles graphs, and answers graph and
// affected-package queries with deterministic, sorted output.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"portgraph/internal/depgraph"
	"portgraph/internal/models"
	"portgraph/internal/pkgid"
	"portgraph/internal/relevance"
	"portgraph/internal/storage"
)

// Service handles snapshot management and dependency-graph queries
type Service struct {
	storage storage.Storage
}

// NewService creates a new graph service with the given storage backend
func NewService(storage storage.Storage) *Service {
	return &Service{
		storage: storage,
	}
}

// GetBuildDependencyGraph builds the dependency graph for the snapshot
// stored under the requested sysroot path and reports it per package.
// Without an explicit package list the graph covers every top-level
// package in the snapshot.
func (s *Service) GetBuildDependencyGraph(ctx context.Context, req *models.GraphRequest) (*models.GraphResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, NewInvalidRequestError("invalid graph request", err)
	}
	req.Normalize()

	snapshot, err := s.loadSnapshot(ctx, req.SysrootPath)
	if err != nil {
		return nil, err
	}

	var sdkTree models.DepdataMap
	if req.IncludeSDK {
		sdkTree = snapshot.SDKDepdata
	}

	roots := req.Packages
	if len(roots) == 0 {
		roots = topLevelNames(snapshot.Depdata, sdkTree)
	}

	graph, err := depgraph.Build(roots, snapshot.Depdata, sdkTree, snapshot.SysrootPath, snapshot.SDKRootPath)
	if err != nil {
		return nil, graphBuildError(err)
	}

	target := snapshot.Board
	if target == "" {
		target = req.Board
	}

	response := &models.GraphResponse{
		Target:      target,
		SysrootPath: snapshot.SysrootPath,
		PackageDeps: []models.PackageDepRecord{},
	}
	for _, node := range graph.Nodes() {
		record := depRecord(node)
		if node.RootKind == depgraph.SDKRoot {
			response.SDKPackageDeps = append(response.SDKPackageDeps, record)
		} else {
			response.PackageDeps = append(response.PackageDeps, record)
		}
	}
	sortDepRecords(response.PackageDeps)
	sortDepRecords(response.SDKPackageDeps)

	return response, nil
}

// ListDependencies computes the flat, deduplicated package list selected
// by the request: every package by default, restricted by changed source
// paths and/or an explicit package subset, optionally widened with the
// packages that transitively depend on the selection.
func (s *Service) ListDependencies(ctx context.Context, req *models.DependencyListRequest) (*models.DependencyListResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, NewInvalidRequestError("invalid dependency list request", err)
	}
	req.Normalize()

	snapshot, err := s.loadSnapshot(ctx, req.SysrootPath)
	if err != nil {
		return nil, err
	}

	roots := topLevelNames(snapshot.Depdata, snapshot.SDKDepdata)
	graph, err := depgraph.Build(roots, snapshot.Depdata, snapshot.SDKDepdata, snapshot.SysrootPath, snapshot.SDKRootPath)
	if err != nil {
		return nil, graphBuildError(err)
	}

	opts := relevance.Options{IncludeReverse: req.IncludeReverse}
	if len(req.ChangedPaths) > 0 {
		opts.ChangedPaths = req.ChangedPaths
	}
	if len(req.Packages) > 0 {
		opts.Packages = req.Packages
	}

	packages, err := relevance.Dependencies(graph, opts)
	if err != nil {
		return nil, graphBuildError(err)
	}

	sort.Slice(packages, func(i, j int) bool {
		return packageLess(packages[i], packages[j])
	})

	refs := make([]models.PackageRef, len(packages))
	for i, pkg := range packages {
		refs[i] = packageRef(pkg)
	}

	return &models.DependencyListResponse{
		SysrootPath: snapshot.SysrootPath,
		Packages:    refs,
	}, nil
}

// SaveSnapshot validates and stores a resolved-dependency snapshot
func (s *Service) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) (*models.SnapshotSaveResponse, error) {
	if snapshot == nil {
		return nil, NewInvalidRequestError("snapshot body is required", nil)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, NewValidationError("invalid snapshot", err)
	}

	if err := s.storage.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, NewInternalError("failed to save snapshot", err)
	}

	return &models.SnapshotSaveResponse{
		SysrootPath:  snapshot.SysrootPath,
		PackageCount: snapshot.PackageCount(),
	}, nil
}

// GetSnapshot retrieves the stored snapshot for a sysroot path
func (s *Service) GetSnapshot(ctx context.Context, sysrootPath string) (*models.Snapshot, error) {
	if sysrootPath == "" {
		return nil, NewInvalidRequestError("sysroot path is required", nil)
	}
	return s.loadSnapshot(ctx, sysrootPath)
}

// ListSnapshots enumerates the stored snapshots
func (s *Service) ListSnapshots(ctx context.Context) (*models.SnapshotListResponse, error) {
	infos, err := s.storage.ListSnapshots(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list snapshots", err)
	}

	response := &models.SnapshotListResponse{Sysroots: make([]models.SnapshotInfo, len(infos))}
	for i, info := range infos {
		response.Sysroots[i] = *info
	}
	return response, nil
}

// DeleteSnapshot removes the stored snapshot for a sysroot path
func (s *Service) DeleteSnapshot(ctx context.Context, sysrootPath string) error {
	if sysrootPath == "" {
		return NewInvalidRequestError("sysroot path is required", nil)
	}
	if err := s.storage.DeleteSnapshot(ctx, sysrootPath); err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			return NewSnapshotNotFoundError(sysrootPath)
		}
		return NewInternalError("failed to delete snapshot", err)
	}
	return nil
}

// loadSnapshot fetches a snapshot, mapping storage errors to service errors.
func (s *Service) loadSnapshot(ctx context.Context, sysrootPath string) (*models.Snapshot, error) {
	snapshot, err := s.storage.GetSnapshot(ctx, sysrootPath)
	if err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			return nil, NewSnapshotNotFoundError(sysrootPath)
		}
		return nil, NewInternalError("failed to load snapshot", err)
	}
	return snapshot, nil
}

// graphBuildError maps a graph-construction failure to a service error:
// unresolved references are client data problems, anything else is internal.
func graphBuildError(err error) *ServiceError {
	var unresolved *depgraph.UnresolvedReferenceError
	if errors.As(err, &unresolved) {
		return NewUnresolvableError(err)
	}
	return NewInternalError("failed to build dependency graph", err)
}

// topLevelNames returns the sorted union of top-level package names of the
// given trees.
func topLevelNames(trees ...models.DepdataMap) []string {
	seen := make(map[string]bool)
	var names []string
	for _, tree := range trees {
		for name := range tree {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// depRecord converts a graph node to its wire form with sorted dependencies.
func depRecord(node *depgraph.Node) models.PackageDepRecord {
	deps := make([]models.PackageRef, len(node.Deps))
	for i, dep := range node.Deps {
		deps[i] = packageRef(dep.Package)
	}
	sort.Slice(deps, func(i, j int) bool {
		return refLess(deps[i], deps[j])
	})

	sourcePaths := node.SourcePaths
	if sourcePaths == nil {
		sourcePaths = []string{}
	}

	return models.PackageDepRecord{
		Package:     packageRef(node.Package),
		DepPackages: deps,
		SourcePaths: sourcePaths,
	}
}

func packageRef(pkg pkgid.Package) models.PackageRef {
	return models.PackageRef{
		Category: pkg.Category,
		Name:     pkg.Name,
		Version:  pkg.VersionRevision(),
	}
}

func sortDepRecords(records []models.PackageDepRecord) {
	sort.Slice(records, func(i, j int) bool {
		return refLess(records[i].Package, records[j].Package)
	})
}

func refLess(a, b models.PackageRef) bool {
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Version < b.Version
}

// packageLess orders packages by atom, then by real version comparison
// where the atoms match, falling back to string order when a version
// fails to compare.
func packageLess(a, b pkgid.Package) bool {
	if a.Atom() != b.Atom() {
		return a.Atom() < b.Atom()
	}
	cmp, err := a.Compare(b)
	if err != nil {
		return fmt.Sprint(a) < fmt.Sprint(b)
	}
	return cmp < 0
}
