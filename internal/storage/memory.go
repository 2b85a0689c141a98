package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"portgraph/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory data
// structures. This provider is ideal for development, testing, and
// scenarios where data persistence is not required. It provides fast
// access but data is lost on restart.
type MemoryStorage struct {
	mu        sync.RWMutex
	snapshots map[string]*models.Snapshot // keyed by sysroot path
}

// NewMemoryStorage creates a new memory-based storage instance
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	return &MemoryStorage{
		snapshots: make(map[string]*models.Snapshot),
	}, nil
}

// SaveSnapshot stores or replaces the snapshot for its sysroot path
func (m *MemoryStorage) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Store a deep copy to prevent external modification
	stored := snapshot.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.snapshots[stored.SysrootPath] = stored

	return nil
}

// GetSnapshot retrieves the snapshot for a sysroot path
func (m *MemoryStorage) GetSnapshot(ctx context.Context, sysrootPath string) (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot, exists := m.snapshots[sysrootPath]
	if !exists {
		return nil, ErrSnapshotNotFound
	}

	return snapshot.Clone(), nil
}

// ListSnapshots returns summaries of all stored snapshots, ordered by
// sysroot path
func (m *MemoryStorage) ListSnapshots(ctx context.Context) ([]*models.SnapshotInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]*models.SnapshotInfo, 0, len(m.snapshots))
	for _, snapshot := range m.snapshots {
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
func (m *MemoryStorage) DeleteSnapshot(ctx context.Context, sysrootPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.snapshots[sysrootPath]; !exists {
		return ErrSnapshotNotFound
	}

	delete(m.snapshots, sysrootPath)
	return nil
}

// Ping verifies the storage backend is reachable and operational.
func (m *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

// Close closes the storage connection and cleans up resources
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots = make(map[string]*models.Snapshot)

	return nil
}
