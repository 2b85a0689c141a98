package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"portgraph/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteStorage implements the Storage interface using an embedded SQLite
// database. Each snapshot is one row keyed by sysroot path; the depdata
// trees are stored as JSON text columns.
type SQLiteStorage struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	sysroot_path   TEXT PRIMARY KEY,
	format_version TEXT NOT NULL,
	board          TEXT NOT NULL DEFAULT '',
	sdk_root_path  TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	depdata        TEXT NOT NULL,
	sdk_depdata    TEXT NOT NULL DEFAULT '{}'
);`

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SaveSnapshot stores or replaces the snapshot for its sysroot path
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	depdata, sdkDepdata, err := marshalDepdata(snapshot)
	if err != nil {
		return err
	}

	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (sysroot_path, format_version, board, sdk_root_path, created_at, depdata, sdk_depdata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sysroot_path) DO UPDATE SET
			format_version = excluded.format_version,
			board          = excluded.board,
			sdk_root_path  = excluded.sdk_root_path,
			created_at     = excluded.created_at,
			depdata        = excluded.depdata,
			sdk_depdata    = excluded.sdk_depdata`,
		snapshot.SysrootPath, snapshot.FormatVersion, snapshot.Board, snapshot.SDKRootPath,
		createdAt.Format(time.RFC3339Nano), depdata, sdkDepdata)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// GetSnapshot retrieves the snapshot for a sysroot path
func (s *SQLiteStorage) GetSnapshot(ctx context.Context, sysrootPath string) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT sysroot_path, format_version, board, sdk_root_path, created_at, depdata, sdk_depdata
		FROM snapshots WHERE sysroot_path = ?`, sysrootPath)

	var snapshot models.Snapshot
	var createdAt, depdata, sdkDepdata string
	err := row.Scan(&snapshot.SysrootPath, &snapshot.FormatVersion, &snapshot.Board,
		&snapshot.SDKRootPath, &createdAt, &depdata, &sdkDepdata)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if err := unmarshalDepdata(&snapshot, createdAt, depdata, sdkDepdata); err != nil {
		return nil, err
	}

	return &snapshot, nil
}

// ListSnapshots returns summaries of all stored snapshots, ordered by
// sysroot path
func (s *SQLiteStorage) ListSnapshots(ctx context.Context) ([]*models.SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sysroot_path, board, created_at, depdata, sdk_depdata
		FROM snapshots ORDER BY sysroot_path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []*models.SnapshotInfo
	for rows.Next() {
		var snapshot models.Snapshot
		var createdAt, depdata, sdkDepdata string
		if err := rows.Scan(&snapshot.SysrootPath, &snapshot.Board, &createdAt, &depdata, &sdkDepdata); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		if err := unmarshalDepdata(&snapshot, createdAt, depdata, sdkDepdata); err != nil {
			return nil, err
		}
		infos = append(infos, &models.SnapshotInfo{
			SysrootPath:  snapshot.SysrootPath,
			Board:        snapshot.Board,
			PackageCount: snapshot.PackageCount(),
			CreatedAt:    snapshot.CreatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot rows: %w", err)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].SysrootPath < infos[j].SysrootPath
	})

	return infos, nil
}

// DeleteSnapshot removes the snapshot for a sysroot path
func (s *SQLiteStorage) DeleteSnapshot(ctx context.Context, sysrootPath string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE sysroot_path = ?`, sysrootPath)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrSnapshotNotFound
	}

	return nil
}

// Ping verifies the storage backend is reachable and operational.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the storage connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// marshalDepdata serializes both depdata trees of a snapshot to JSON text.
func marshalDepdata(snapshot *models.Snapshot) (depdata, sdkDepdata string, err error) {
	d, err := json.Marshal(snapshot.Depdata)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal depdata: %w", err)
	}
	sd, err := json.Marshal(snapshot.SDKDepdata)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal sdk depdata: %w", err)
	}
	return string(d), string(sd), nil
}

// unmarshalDepdata fills a scanned snapshot's timestamp and depdata trees.
func unmarshalDepdata(snapshot *models.Snapshot, createdAt, depdata, sdkDepdata string) error {
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return fmt.Errorf("failed to parse snapshot timestamp: %w", err)
	}
	snapshot.CreatedAt = t

	if err := json.Unmarshal([]byte(depdata), &snapshot.Depdata); err != nil {
		return fmt.Errorf("failed to unmarshal depdata: %w", err)
	}
	if err := json.Unmarshal([]byte(sdkDepdata), &snapshot.SDKDepdata); err != nil {
		return fmt.Errorf("failed to unmarshal sdk depdata: %w", err)
	}
	return nil
}
