package service

import (
	"context"
	"testing"

	"portgraph/internal/models"
	"portgraph/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.NewMemoryStorage(storage.Config{Type: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(store)
}

// serviceSnapshot has three target packages (power_manager and dbus both
// depend on libchrome) plus libchrome installed into the SDK root.
func serviceSnapshot() *models.Snapshot {
	target := "/build/eve"
	libchrome := func(root string) []*models.PackageOccurrence {
		return []*models.PackageOccurrence{
			{
				Action:      models.ActionMerge,
				Root:        root,
				SourcePaths: []string{"src/platform/libchrome"},
			},
		}
	}
	return &models.Snapshot{
		Board:       "eve",
		SysrootPath: target,
		SDKRootPath: "/",
		Depdata: models.DepdataMap{
			"chromeos-base/power_manager-0.0.1-r100": {
				{
					Action:      models.ActionMerge,
					Root:        target,
					SourcePaths: []string{"src/platform2/power_manager"},
					Deps: models.DepdataMap{
						"chromeos-base/libchrome-0.0.1": libchrome(target),
					},
				},
			},
			"sys-apps/dbus-1.12.20-r3": {
				{
					Action:      models.ActionMerge,
					Root:        target,
					SourcePaths: []string{"src/third_party/dbus"},
					Deps: models.DepdataMap{
						"chromeos-base/libchrome-0.0.1": libchrome(target),
					},
				},
			},
			"chromeos-base/libchrome-0.0.1": libchrome(target),
		},
		SDKDepdata: models.DepdataMap{
			"chromeos-base/libchrome-0.0.1": libchrome("/"),
		},
	}
}

func saveServiceSnapshot(t *testing.T, svc *Service) {
	t.Helper()
	resp, err := svc.SaveSnapshot(context.Background(), serviceSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "/build/eve", resp.SysrootPath)
	assert.Equal(t, 3, resp.PackageCount)
}

func TestSaveSnapshot(t *testing.T) {
	svc := newTestService(t)
	saveServiceSnapshot(t, svc)

	got, err := svc.GetSnapshot(context.Background(), "/build/eve")
	require.NoError(t, err)
	assert.Equal(t, models.SnapshotFormatVersion, got.FormatVersion)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveSnapshotInvalid(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SaveSnapshot(context.Background(), nil)
	requireServiceError(t, err, models.ErrorCodeInvalidRequest)

	bad := serviceSnapshot()
	bad.SysrootPath = ""
	_, err = svc.SaveSnapshot(context.Background(), bad)
	requireServiceError(t, err, models.ErrorCodeValidation)
}

func TestGetSnapshotNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetSnapshot(context.Background(), "/build/missing")
	requireServiceError(t, err, models.ErrorCodeSnapshotNotFound)
}

func TestListAndDeleteSnapshots(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	saveServiceSnapshot(t, svc)

	list, err := svc.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, list.Sysroots, 1)
	assert.Equal(t, "/build/eve", list.Sysroots[0].SysrootPath)
	assert.Equal(t, "eve", list.Sysroots[0].Board)
	assert.Equal(t, 3, list.Sysroots[0].PackageCount)

	require.NoError(t, svc.DeleteSnapshot(ctx, "/build/eve"))
	err = svc.DeleteSnapshot(ctx, "/build/eve")
	requireServiceError(t, err, models.ErrorCodeSnapshotNotFound)

	list, err = svc.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Sysroots)
}

func TestGetBuildDependencyGraph(t *testing.T) {
	svc := newTestService(t)
	saveServiceSnapshot(t, svc)

	resp, err := svc.GetBuildDependencyGraph(context.Background(), &models.GraphRequest{
		SysrootPath: "/build/eve",
	})
	require.NoError(t, err)

	assert.Equal(t, "eve", resp.Target)
	assert.Equal(t, "/build/eve", resp.SysrootPath)
	assert.Empty(t, resp.SDKPackageDeps)

	require.Len(t, resp.PackageDeps, 3)
	assert.Equal(t, "libchrome", resp.PackageDeps[0].Package.Name)
	assert.Equal(t, "power_manager", resp.PackageDeps[1].Package.Name)
	assert.Equal(t, "dbus", resp.PackageDeps[2].Package.Name)

	pm := resp.PackageDeps[1]
	assert.Equal(t, "0.0.1-r100", pm.Package.Version)
	assert.Equal(t, []string{"src/platform2/power_manager"}, pm.SourcePaths)
	require.Len(t, pm.DepPackages, 1)
	assert.Equal(t, "libchrome", pm.DepPackages[0].Name)

	assert.Empty(t, resp.PackageDeps[0].DepPackages)
}

func TestGetBuildDependencyGraphWithSDK(t *testing.T) {
	svc := newTestService(t)
	saveServiceSnapshot(t, svc)

	resp, err := svc.GetBuildDependencyGraph(context.Background(), &models.GraphRequest{
		SysrootPath: "/build/eve",
		IncludeSDK:  true,
	})
	require.NoError(t, err)

	require.Len(t, resp.SDKPackageDeps, 1)
	assert.Equal(t, "libchrome", resp.SDKPackageDeps[0].Package.Name)
	assert.Len(t, resp.PackageDeps, 3)
}

func TestGetBuildDependencyGraphSubset(t *testing.T) {
	svc := newTestService(t)
	saveServiceSnapshot(t, svc)

	resp, err := svc.GetBuildDependencyGraph(context.Background(), &models.GraphRequest{
		SysrootPath: "/build/eve",
		Packages:    []string{"chromeos-base/power_manager-0.0.1-r100"},
	})
	require.NoError(t, err)

	// Only the requested root and its dependency subtree.
	require.Len(t, resp.PackageDeps, 2)
	assert.Equal(t, "libchrome", resp.PackageDeps[0].Package.Name)
	assert.Equal(t, "power_manager", resp.PackageDeps[1].Package.Name)
}

func TestGetBuildDependencyGraphErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetBuildDependencyGraph(ctx, &models.GraphRequest{})
	requireServiceError(t, err, models.ErrorCodeInvalidRequest)

	_, err = svc.GetBuildDependencyGraph(ctx, &models.GraphRequest{SysrootPath: "/build/missing"})
	requireServiceError(t, err, models.ErrorCodeSnapshotNotFound)

	// A dependency without a top-level entry is a data defect, not a 500.
	broken := serviceSnapshot()
	delete(broken.Depdata, "chromeos-base/libchrome-0.0.1")
	_, err = svc.SaveSnapshot(ctx, broken)
	require.NoError(t, err)

	_, err = svc.GetBuildDependencyGraph(ctx, &models.GraphRequest{SysrootPath: "/build/eve"})
	requireServiceError(t, err, models.ErrorCodeUnresolvable)
}

func TestListDependencies(t *testing.T) {
	svc := newTestService(t)
	saveServiceSnapshot(t, svc)

	resp, err := svc.ListDependencies(context.Background(), &models.DependencyListRequest{
		SysrootPath: "/build/eve",
	})
	require.NoError(t, err)

	assert.Equal(t, "/build/eve", resp.SysrootPath)
	// libchrome appears at both roots but is listed once.
	require.Len(t, resp.Packages, 3)
	assert.Equal(t, "libchrome", resp.Packages[0].Name)
	assert.Equal(t, "power_manager", resp.Packages[1].Name)
	assert.Equal(t, "dbus", resp.Packages[2].Name)
}

func TestListDependenciesChangedPaths(t *testing.T) {
	svc := newTestService(t)
	saveServiceSnapshot(t, svc)
	ctx := context.Background()

	resp, err := svc.ListDependencies(ctx, &models.DependencyListRequest{
		SysrootPath:  "/build/eve",
		ChangedPaths: []string{"src/platform/libchrome/base/files.cc"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Packages, 1)
	assert.Equal(t, "libchrome", resp.Packages[0].Name)

	// Reverse closure pulls in everything that depends on libchrome.
	resp, err = svc.ListDependencies(ctx, &models.DependencyListRequest{
		SysrootPath:    "/build/eve",
		ChangedPaths:   []string{"src/platform/libchrome/base/files.cc"},
		IncludeReverse: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Packages, 3)

	// A path outside every package's source tree selects nothing.
	resp, err = svc.ListDependencies(ctx, &models.DependencyListRequest{
		SysrootPath:  "/build/eve",
		ChangedPaths: []string{"docs/README.md"},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Packages)
}

func TestListDependenciesPackageFilter(t *testing.T) {
	svc := newTestService(t)
	saveServiceSnapshot(t, svc)
	ctx := context.Background()

	resp, err := svc.ListDependencies(ctx, &models.DependencyListRequest{
		SysrootPath: "/build/eve",
		Packages:    []string{"dbus"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Packages, 1)
	assert.Equal(t, "dbus", resp.Packages[0].Name)

	_, err = svc.ListDependencies(ctx, &models.DependencyListRequest{
		SysrootPath: "/build/eve",
		Packages:    []string{"no-such-package"},
	})
	requireServiceError(t, err, models.ErrorCodeUnresolvable)
}

func requireServiceError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, code, svcErr.Code)
}
