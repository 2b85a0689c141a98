package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"portgraph/internal/models"
)

// JSONStorage implements the Storage interface using a JSON file for
// persistence. It provides an in-memory cache for performance and
// supports concurrent access.
type JSONStorage struct {
	filePath     string
	cacheTTL     time.Duration
	mu           sync.RWMutex
	data         *JSONData
	lastModified time.Time
	cacheExpiry  time.Time
}

// JSONData represents the structure of data stored in JSON format
type JSONData struct {
	Snapshots   []*models.Snapshot `json:"snapshots"`
	LastUpdated time.Time          `json:"last_updated"`
}

// NewJSONStorage creates a new JSON-based storage instance
func NewJSONStorage(config Config) (*JSONStorage, error) {
	cacheTTL := 5 * time.Minute
	if config.CacheTTL != "" {
		if duration, err := time.ParseDuration(config.CacheTTL); err == nil {
			cacheTTL = duration
		}
	}

	storage := &JSONStorage{
		filePath: config.Path,
		cacheTTL: cacheTTL,
	}

	// Initialize with empty data if file doesn't exist
	if err := storage.ensureFileExists(); err != nil {
		return nil, fmt.Errorf("failed to ensure file exists: %w", err)
	}

	// Load initial data
	if err := storage.loadData(); err != nil {
		return nil, fmt.Errorf("failed to load initial data: %w", err)
	}

	return storage, nil
}

// ensureFileExists creates the JSON file with empty data if it doesn't exist
func (j *JSONStorage) ensureFileExists() error {
	if _, err := os.Stat(j.filePath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(j.filePath), 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}

		emptyData := &JSONData{
			Snapshots:   []*models.Snapshot{},
			LastUpdated: time.Now(),
		}

		return j.saveData(emptyData)
	}
	return nil
}

// loadData loads data from the JSON file with caching.
// It uses double-checked locking: a fast read-lock path for cache hits,
// and a write-lock slow path with re-validation to prevent TOCTOU races.
func (j *JSONStorage) loadData() error {
	// Fast path: cache is still valid.
	j.mu.RLock()
	if j.data != nil && time.Now().Before(j.cacheExpiry) {
		j.mu.RUnlock()
		return nil
	}
	j.mu.RUnlock()

	// Slow path: acquire write lock and re-validate before doing any I/O.
	j.mu.Lock()
	defer j.mu.Unlock()

	// Another goroutine may have loaded while we waited for the write lock.
	if j.data != nil && time.Now().Before(j.cacheExpiry) {
		return nil
	}

	// Stat and all subsequent reads are done under the write lock.
	info, err := os.Stat(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	// If the file hasn't changed, extend the cache and return.
	if j.data != nil && !info.ModTime().After(j.lastModified) {
		j.cacheExpiry = time.Now().Add(j.cacheTTL)
		return nil
	}

	fileData, err := os.ReadFile(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data JSONData
	if err := json.Unmarshal(fileData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	j.data = &data
	j.lastModified = info.ModTime()
	j.cacheExpiry = time.Now().Add(j.cacheTTL)
	return nil
}

// saveData saves data to the JSON file
func (j *JSONStorage) saveData(data *JSONData) error {
	data.LastUpdated = time.Now()

	fileData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(j.filePath, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// SaveSnapshot stores or replaces the snapshot for its sysroot path
func (j *JSONStorage) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	stored := snapshot.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	for i, existing := range j.data.Snapshots {
		if existing.SysrootPath == stored.SysrootPath {
			j.data.Snapshots[i] = stored
			return j.saveData(j.data)
		}
	}

	j.data.Snapshots = append(j.data.Snapshots, stored)
	return j.saveData(j.data)
}

// GetSnapshot retrieves the snapshot for a sysroot path
func (j *JSONStorage) GetSnapshot(ctx context.Context, sysrootPath string) (*models.Snapshot, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, snapshot := range j.data.Snapshots {
		if snapshot.SysrootPath == sysrootPath {
			return snapshot.Clone(), nil
		}
	}

	return nil, ErrSnapshotNotFound
}

// ListSnapshots returns summaries of all stored snapshots, ordered by
// sysroot path
func (j *JSONStorage) ListSnapshots(ctx context.Context) ([]*models.SnapshotInfo, error) {
	if err := j.loadData(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	infos := make([]*models.SnapshotInfo, 0, len(j.data.Snapshots))
	for _, snapshot := range j.data.Snapshots {
		infos = append(infos, &models.SnapshotInfo{
			SysrootPath:  snapshot.SysrootPath,
			Board:        snapshot.Board,
			PackageCount: snapshot.PackageCount(),
			CreatedAt:    snapshot.CreatedAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].SysrootPath < infos[j].SysrootPath
	})

	return infos, nil
}

// DeleteSnapshot removes the snapshot for a sysroot path
func (j *JSONStorage) DeleteSnapshot(ctx context.Context, sysrootPath string) error {
	if err := j.loadData(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	for i, snapshot := range j.data.Snapshots {
		if snapshot.SysrootPath == sysrootPath {
			j.data.Snapshots = append(j.data.Snapshots[:i], j.data.Snapshots[i+1:]...)
			return j.saveData(j.data)
		}
	}

	return ErrSnapshotNotFound
}

// Ping verifies the storage backend is reachable and operational.
func (j *JSONStorage) Ping(_ context.Context) error {
	_, err := os.Stat(j.filePath)
	return err
}

// Close closes the storage connection and cleans up resources
func (j *JSONStorage) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	// Clear cache
	j.data = nil
	j.cacheExpiry = time.Time{}

	return nil
}
