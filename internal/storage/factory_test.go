package storage

import (
	"path/filepath"
	"testing"

	"portgraph/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryCreate(t *testing.T) {
	factory := NewFactory()
	dir := t.TempDir()

	tests := []struct {
		name   string
		config models.StorageConfig
	}{
		{
			name:   "memory",
			config: models.StorageConfig{Type: models.StorageTypeMemory},
		},
		{
			name: "json",
			config: models.StorageConfig{
				Type: models.StorageTypeJSON,
				Path: filepath.Join(dir, "snapshots.json"),
			},
		},
		{
			name: "sqlite",
			config: models.StorageConfig{
				Type: models.StorageTypeSQLite,
				Database: models.DatabaseConfig{
					DSN: filepath.Join(dir, "snapshots.db"),
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := factory.Create(tt.config)
			require.NoError(t, err)
			require.NotNil(t, store)
			assert.NoError(t, store.Close())
		})
	}
}

func TestFactoryCreateUnsupported(t *testing.T) {
	factory := NewFactory()
	_, err := factory.Create(models.StorageConfig{Type: "etcd"})
	assert.Error(t, err)
}

func TestFactoryValidateConfig(t *testing.T) {
	factory := NewFactory()

	tests := []struct {
		name    string
		config  models.StorageConfig
		wantErr bool
	}{
		{"memory needs nothing", models.StorageConfig{Type: models.StorageTypeMemory}, false},
		{"json needs path", models.StorageConfig{Type: models.StorageTypeJSON}, true},
		{"json with path", models.StorageConfig{Type: models.StorageTypeJSON, Path: "/tmp/s.json"}, false},
		{"postgres needs dsn", models.StorageConfig{Type: models.StorageTypePostgres}, true},
		{"sqlite needs dsn", models.StorageConfig{Type: models.StorageTypeSQLite}, true},
		{
			"postgres with dsn",
			models.StorageConfig{
				Type:     models.StorageTypePostgres,
				Database: models.DatabaseConfig{DSN: "postgres://localhost/portgraph"},
			},
			false,
		},
		{"unknown type", models.StorageConfig{Type: "etcd"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := factory.ValidateConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFactorySupportedProviders(t *testing.T) {
	providers := NewFactory().GetSupportedProviders()
	assert.ElementsMatch(t, []string{"json", "memory", "postgres", "sqlite"}, providers)
}
