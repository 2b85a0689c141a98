package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portgraph/internal/api"
	"portgraph/internal/models"
	"portgraph/internal/service"
	"portgraph/internal/storage"
)

// Integration tests that exercise the whole stack end-to-end: HTTP routes,
// auth middleware, the graph service, and JSON file storage.

const ingestToken = "integration-test-token"

func newTestServer(t *testing.T, storageFile string) *httptest.Server {
	t.Helper()

	store, err := storage.NewJSONStorage(storage.Config{
		Type:     "json",
		Path:     storageFile,
		CacheTTL: "1m",
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	graphService := service.NewService(store)
	handlers := api.NewHandlers(graphService, store, "integration-test")

	cfg := &models.Config{
		Server: models.ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: models.StorageConfig{
			Type: "json",
			Path: storageFile,
		},
		Security: models.SecurityConfig{
			EnableAuth:   true,
			IngestTokens: []string{ingestToken},
		},
	}

	server := httptest.NewServer(api.SetupRoutes(handlers, cfg))
	t.Cleanup(server.Close)
	return server
}

func integrationSnapshot(sysrootPath string) *models.Snapshot {
	libchrome := []*models.PackageOccurrence{
		{
			Action:      models.ActionMerge,
			Root:        sysrootPath,
			SourcePaths: []string{"src/platform/libchrome"},
		},
	}
	dbus := []*models.PackageOccurrence{
		{
			Action:      models.ActionMerge,
			Root:        sysrootPath,
			SourcePaths: []string{"src/third_party/dbus"},
			Deps: models.DepdataMap{
				"chromeos-base/libchrome-0.0.1-r50": libchrome,
			},
		},
	}
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
						"chromeos-base/libchrome-0.0.1-r50": libchrome,
						"sys-apps/dbus-1.12.20-r3":          dbus,
					},
				},
			},
			"sys-apps/dbus-1.12.20-r3":          dbus,
			"chromeos-base/libchrome-0.0.1-r50": libchrome,
		},
	}
}

func doRequest(t *testing.T, method, url string, body any, token string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestIntegration_FullSnapshotFlow(t *testing.T) {
	tempDir := t.TempDir()
	server := newTestServer(t, filepath.Join(tempDir, "snapshots.json"))

	sysroot := "/build/eve"

	// Step 1: Ingest a snapshot (authenticated).
	resp := doRequest(t, http.MethodPut, server.URL+"/api/v1/snapshots", integrationSnapshot(sysroot), ingestToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	saved := decodeBody[models.SnapshotSaveResponse](t, resp)
	assert.Equal(t, sysroot, saved.SysrootPath)
	assert.Equal(t, 3, saved.PackageCount)

	// Step 2: The snapshot shows up in the listing.
	resp = doRequest(t, http.MethodGet, server.URL+"/api/v1/snapshots", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing := decodeBody[models.SnapshotListResponse](t, resp)
	require.Len(t, listing.Sysroots, 1)
	assert.Equal(t, sysroot, listing.Sysroots[0].SysrootPath)
	assert.Equal(t, "eve", listing.Sysroots[0].Board)
	assert.Equal(t, 3, listing.Sysroots[0].PackageCount)

	// Step 3: Query the full dependency graph.
	resp = doRequest(t, http.MethodPost, server.URL+"/api/v1/graph", models.GraphRequest{SysrootPath: sysroot}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	graph := decodeBody[models.GraphResponse](t, resp)
	assert.Equal(t, sysroot, graph.SysrootPath)
	require.Len(t, graph.PackageDeps, 3)

	// Records are sorted by category then name.
	assert.Equal(t, "libchrome", graph.PackageDeps[0].Package.Name)
	assert.Equal(t, "power_manager", graph.PackageDeps[1].Package.Name)
	assert.Equal(t, "dbus", graph.PackageDeps[2].Package.Name)
	assert.Equal(t, "0.0.1-r100", graph.PackageDeps[1].Package.Version)
	require.Len(t, graph.PackageDeps[1].DepPackages, 2)

	// Step 4: Relevance query - a change under dbus affects dbus and its
	// reverse dependency power_manager, but not libchrome.
	resp = doRequest(t, http.MethodPost, server.URL+"/api/v1/dependencies", models.DependencyListRequest{
		SysrootPath:    sysroot,
		ChangedPaths:   []string{"src/third_party/dbus/bus/bus.c"},
		IncludeReverse: true,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deps := decodeBody[models.DependencyListResponse](t, resp)
	require.Len(t, deps.Packages, 2)
	assert.Equal(t, "power_manager", deps.Packages[0].Name)
	assert.Equal(t, "dbus", deps.Packages[1].Name)

	// Step 5: Re-ingest replaces the stored snapshot for the same sysroot.
	replacement := integrationSnapshot(sysroot)
	delete(replacement.Depdata, "sys-apps/dbus-1.12.20-r3")
	delete(replacement.Depdata["chromeos-base/power_manager-0.0.1-r100"][0].Deps, "sys-apps/dbus-1.12.20-r3")
	resp = doRequest(t, http.MethodPut, server.URL+"/api/v1/snapshots", replacement, ingestToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, server.URL+"/api/v1/graph", models.GraphRequest{SysrootPath: sysroot}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	graph = decodeBody[models.GraphResponse](t, resp)
	assert.Len(t, graph.PackageDeps, 2)

	// Step 6: Delete the snapshot and verify queries now fail with 404.
	resp = doRequest(t, http.MethodDelete, server.URL+"/api/v1/snapshot?sysroot_path="+sysroot, nil, ingestToken)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, server.URL+"/api/v1/graph", models.GraphRequest{SysrootPath: sysroot}, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	errResp := decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, models.ErrorCodeSnapshotNotFound, errResp.Code)
	assert.NotEmpty(t, errResp.RequestID)
}

func TestIntegration_WriteOperationsRequireAuth(t *testing.T) {
	tempDir := t.TempDir()
	server := newTestServer(t, filepath.Join(tempDir, "snapshots.json"))

	// Unauthenticated ingest is rejected.
	resp := doRequest(t, http.MethodPut, server.URL+"/api/v1/snapshots", integrationSnapshot("/build/eve"), "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errResp := decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, models.ErrorCodeUnauthorized, errResp.Code)

	// Wrong token is rejected too.
	resp = doRequest(t, http.MethodPut, server.URL+"/api/v1/snapshots", integrationSnapshot("/build/eve"), "wrong-token")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Reads stay open.
	resp = doRequest(t, http.MethodGet, server.URL+"/api/v1/snapshots", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestIntegration_SnapshotsPersistAcrossRestart(t *testing.T) {
	tempDir := t.TempDir()
	storageFile := filepath.Join(tempDir, "snapshots.json")

	server := newTestServer(t, storageFile)
	resp := doRequest(t, http.MethodPut, server.URL+"/api/v1/snapshots", integrationSnapshot("/build/eve"), ingestToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	server.Close()

	// A fresh server over the same storage file sees the snapshot.
	server2 := newTestServer(t, storageFile)
	resp = doRequest(t, http.MethodGet, server2.URL+"/api/v1/snapshot?sysroot_path=/build/eve", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snapshot := decodeBody[models.Snapshot](t, resp)
	assert.Equal(t, "/build/eve", snapshot.SysrootPath)
	assert.Equal(t, "eve", snapshot.Board)
	assert.Len(t, snapshot.Depdata, 3)
}

func TestIntegration_HealthEndpoint(t *testing.T) {
	tempDir := t.TempDir()
	server := newTestServer(t, filepath.Join(tempDir, "snapshots.json"))

	resp := doRequest(t, http.MethodGet, server.URL+"/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeBody[models.HealthResponse](t, resp)
	assert.Equal(t, models.StatusHealthy, health.Status)
	assert.Equal(t, "integration-test", health.Version)
	require.Contains(t, health.Components, "storage")
	assert.Equal(t, models.StatusHealthy, health.Components["storage"].Status)
}

func TestIntegration_ValidationErrors(t *testing.T) {
	tempDir := t.TempDir()
	server := newTestServer(t, filepath.Join(tempDir, "snapshots.json"))

	// Graph query without a sysroot path.
	resp := doRequest(t, http.MethodPost, server.URL+"/api/v1/graph", models.GraphRequest{}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, models.ErrorCodeInvalidRequest, errResp.Code)

	// Snapshot missing required fields.
	bad := &models.Snapshot{SysrootPath: "/build/eve"}
	resp = doRequest(t, http.MethodPut, server.URL+"/api/v1/snapshots", bad, ingestToken)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errResp = decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, models.ErrorCodeValidation, errResp.Code)

	// Graph query naming a package absent from the snapshot.
	resp = doRequest(t, http.MethodPut, server.URL+"/api/v1/snapshots", integrationSnapshot("/build/eve"), ingestToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, server.URL+"/api/v1/graph", models.GraphRequest{
		SysrootPath: "/build/eve",
		Packages:    []string{"chromeos-base/missing-1.0.0"},
	}, "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errResp = decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, models.ErrorCodeUnresolvable, errResp.Code)
	assert.Contains(t, errResp.Error, "unresolvable")
}

func TestIntegration_MethodNotAllowed(t *testing.T) {
	tempDir := t.TempDir()
	server := newTestServer(t, filepath.Join(tempDir, "snapshots.json"))

	resp := doRequest(t, http.MethodPatch, server.URL+"/api/v1/graph", nil, "")
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	errResp := decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, models.ErrorCodeInvalidRequest, errResp.Code)
}
