package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portgraph/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements the Storage interface using PostgreSQL.
// Each snapshot is one row keyed by sysroot path; the depdata trees are
// stored as JSONB columns.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	sysroot_path   TEXT PRIMARY KEY,
	format_version TEXT NOT NULL,
	board          TEXT NOT NULL DEFAULT '',
	sdk_root_path  TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	depdata        JSONB NOT NULL,
	sdk_depdata    JSONB NOT NULL DEFAULT '{}'::jsonb
);`

// NewPostgresStorage creates a new PostgreSQL storage instance.
func NewPostgresStorage(config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	pool, err := pgxpool.New(context.Background(), config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// SaveSnapshot stores or replaces the snapshot for its sysroot path.
func (p *PostgresStorage) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	depdata, err := json.Marshal(snapshot.Depdata)
	if err != nil {
		return fmt.Errorf("failed to marshal depdata: %w", err)
	}
	sdkDepdata, err := json.Marshal(snapshot.SDKDepdata)
	if err != nil {
		return fmt.Errorf("failed to marshal sdk depdata: %w", err)
	}

	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO snapshots (sysroot_path, format_version, board, sdk_root_path, created_at, depdata, sdk_depdata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (sysroot_path) DO UPDATE SET
			format_version = EXCLUDED.format_version,
			board          = EXCLUDED.board,
			sdk_root_path  = EXCLUDED.sdk_root_path,
			created_at     = EXCLUDED.created_at,
			depdata        = EXCLUDED.depdata,
			sdk_depdata    = EXCLUDED.sdk_depdata`,
		snapshot.SysrootPath, snapshot.FormatVersion, snapshot.Board, snapshot.SDKRootPath,
		createdAt, depdata, sdkDepdata)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// GetSnapshot retrieves the snapshot for a sysroot path.
func (p *PostgresStorage) GetSnapshot(ctx context.Context, sysrootPath string) (*models.Snapshot, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT sysroot_path, format_version, board, sdk_root_path, created_at, depdata, sdk_depdata
		FROM snapshots WHERE sysroot_path = $1`, sysrootPath)

	var snapshot models.Snapshot
	var depdata, sdkDepdata []byte
	err := row.Scan(&snapshot.SysrootPath, &snapshot.FormatVersion, &snapshot.Board,
		&snapshot.SDKRootPath, &snapshot.CreatedAt, &depdata, &sdkDepdata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if err := json.Unmarshal(depdata, &snapshot.Depdata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal depdata: %w", err)
	}
	if err := json.Unmarshal(sdkDepdata, &snapshot.SDKDepdata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sdk depdata: %w", err)
	}

	return &snapshot, nil
}

// ListSnapshots returns summaries of all stored snapshots, ordered by
// sysroot path.
func (p *PostgresStorage) ListSnapshots(ctx context.Context) ([]*models.SnapshotInfo, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT sysroot_path, board, created_at, depdata, sdk_depdata
		FROM snapshots ORDER BY sysroot_path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []*models.SnapshotInfo
	for rows.Next() {
		var snapshot models.Snapshot
		var depdata, sdkDepdata []byte
		if err := rows.Scan(&snapshot.SysrootPath, &snapshot.Board, &snapshot.CreatedAt, &depdata, &sdkDepdata); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		if err := json.Unmarshal(depdata, &snapshot.Depdata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal depdata: %w", err)
		}
		if err := json.Unmarshal(sdkDepdata, &snapshot.SDKDepdata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sdk depdata: %w", err)
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

	return infos, nil
}

// DeleteSnapshot removes the snapshot for a sysroot path.
func (p *PostgresStorage) DeleteSnapshot(ctx context.Context, sysrootPath string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM snapshots WHERE sysroot_path = $1`, sysrootPath)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

// Ping verifies the storage backend is reachable and operational.
func (p *PostgresStorage) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the storage connection and cleans up resources.
func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}
