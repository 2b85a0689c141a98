package storage

import (
	"context"
	"testing"
	"time"

	"portgraph/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSnapshot builds a small valid snapshot for one sysroot.
func testSnapshot(sysrootPath string) *models.Snapshot {
	return &models.Snapshot{
		FormatVersion: models.SnapshotFormatVersion,
		Board:         "eve",
		SysrootPath:   sysrootPath,
		SDKRootPath:   "/",
		CreatedAt:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Depdata: models.DepdataMap{
			"chromeos-base/power_manager-0.0.1-r100": {
				{
					Action:      models.ActionMerge,
					Root:        sysrootPath,
					SourcePaths: []string{"src/platform2/power_manager"},
					Deps: models.DepdataMap{
						"chromeos-base/libchrome-0.0.1": {
							{Action: models.ActionMerge, Root: sysrootPath},
						},
					},
				},
			},
			"chromeos-base/libchrome-0.0.1": {
				{Action: models.ActionMerge, Root: sysrootPath},
			},
		},
	}
}

// exerciseStorage runs the shared save/get/list/delete contract against a
// backend instance.
func exerciseStorage(t *testing.T, store Storage) {
	t.Helper()
	ctx := context.Background()

	// Empty store behaves consistently.
	_, err := store.GetSnapshot(ctx, "/build/eve")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	assert.ErrorIs(t, store.DeleteSnapshot(ctx, "/build/eve"), ErrSnapshotNotFound)

	infos, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)

	// Save and read back.
	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot("/build/eve")))
	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot("/build/kevin")))

	got, err := store.GetSnapshot(ctx, "/build/eve")
	require.NoError(t, err)
	assert.Equal(t, "/build/eve", got.SysrootPath)
	assert.Equal(t, "eve", got.Board)
	assert.Len(t, got.Depdata, 2)
	occs := got.Depdata["chromeos-base/power_manager-0.0.1-r100"]
	require.Len(t, occs, 1)
	assert.Equal(t, []string{"src/platform2/power_manager"}, occs[0].SourcePaths)
	assert.Contains(t, occs[0].Deps, "chromeos-base/libchrome-0.0.1")

	// List is ordered by sysroot path and counts top-level packages.
	infos, err = store.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "/build/eve", infos[0].SysrootPath)
	assert.Equal(t, "/build/kevin", infos[1].SysrootPath)
	assert.Equal(t, 2, infos[0].PackageCount)

	// Saving again replaces the stored snapshot.
	replacement := testSnapshot("/build/eve")
	replacement.Board = "eve-arc"
	replacement.Depdata = models.DepdataMap{
		"sys-apps/dbus-1.12-r3": {
			{Action: models.ActionMerge, Root: "/build/eve"},
		},
	}
	require.NoError(t, store.SaveSnapshot(ctx, replacement))

	got, err = store.GetSnapshot(ctx, "/build/eve")
	require.NoError(t, err)
	assert.Equal(t, "eve-arc", got.Board)
	assert.Len(t, got.Depdata, 1)

	// Delete removes exactly one snapshot.
	require.NoError(t, store.DeleteSnapshot(ctx, "/build/eve"))
	_, err = store.GetSnapshot(ctx, "/build/eve")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	_, err = store.GetSnapshot(ctx, "/build/kevin")
	assert.NoError(t, err)

	assert.NoError(t, store.Ping(ctx))
}
