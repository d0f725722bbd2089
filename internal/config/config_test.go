package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dosnap/internal/strategy"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{
			name:        "Nil config",
			config:      nil,
			expectError: false,
		},
		{
			name:        "Valid minimal config",
			config:      &Config{BackupRoot: ".dosnap"},
			expectError: false,
		},
		{
			name:        "Missing backup root",
			config:      &Config{},
			expectError: true,
		},
		{
			name:        "Negative retention",
			config:      &Config{BackupRoot: ".dosnap", MaxRollbackPoints: -1},
			expectError: true,
		},
		{
			name:        "Negative workers",
			config:      &Config{BackupRoot: ".dosnap", Workers: -1},
			expectError: true,
		},
		{
			name: "Invalid service strategy",
			config: &Config{
				BackupRoot: ".dosnap",
				Services: map[string]strategy.Config{
					"api": {Kind: strategy.HTTPServiceStrategy},
				},
			},
			expectError: true,
		},
		{
			name: "Valid service strategies",
			config: &Config{
				BackupRoot: ".dosnap",
				Services: map[string]strategy.Config{
					"api":   {Kind: strategy.HTTPServiceStrategy, Port: 8080},
					"redis": {Kind: strategy.StatefulCacheStrategy},
				},
			},
			expectError: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfig(tc.config)
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManagerConfigTranslation(t *testing.T) {
	c := &Config{
		BackupRoot:        "/var/lib/dosnap",
		ComposeFilePath:   "/deploy/docker-compose.yml",
		ConfigPaths:       []string{"docker-compose.yml", ".env"},
		MaxRollbackPoints: 7,
		OperationTimeout:  45 * time.Second,
		Workers:           3,
		Services: map[string]strategy.Config{
			"redis": {Kind: strategy.StatefulCacheStrategy},
		},
	}

	mc := c.ManagerConfig()
	assert.Equal(t, "/var/lib/dosnap", mc.BackupRoot)
	assert.Equal(t, "/deploy", mc.SourceRoot)
	assert.Equal(t, []string{"docker-compose.yml", ".env"}, mc.ConfigPaths)
	assert.Equal(t, 7, mc.MaxRollbackPoints)
	assert.Equal(t, 45*time.Second, mc.OperationTimeout)
	assert.Equal(t, 3, mc.Workers)
	assert.Contains(t, mc.ServiceStrategies, "redis")
}

// LoadConfig is a process-wide singleton, so the file-loading path gets one
// combined test.
func TestLoadConfigFromFile(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	configFile := filepath.Join(tempDir, "dosnap.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
BACKUP_ROOT: /var/lib/dosnap
COMPOSE_FILE: docker-compose.yml
CONFIG_PATHS:
  - nginx/nginx.conf
MAX_ROLLBACK_POINTS: 5
OPERATION_TIMEOUT: 1m
HISTORY_DB: /var/lib/dosnap/history.db
services:
  redis:
    kind: stateful-cache
    persist_command: "redis-cli SAVE"
  api:
    kind: http
    port: 8080
    endpoint: /healthz
`), 0644))

	cfg, err := LoadConfig(configFile, nil)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/dosnap", cfg.BackupRoot)
	assert.Equal(t, 5, cfg.MaxRollbackPoints)
	assert.Equal(t, time.Minute, cfg.OperationTimeout)
	assert.Equal(t, "/var/lib/dosnap/history.db", cfg.HistoryDB)

	// Defaults fill the unset keys.
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.Verbose)

	// The compose file is prepended to the captured config set.
	assert.Equal(t, []string{"docker-compose.yml", "nginx/nginx.conf"}, cfg.ConfigPaths)

	require.Contains(t, cfg.Services, "redis")
	assert.Equal(t, strategy.StatefulCacheStrategy, cfg.Services["redis"].Kind)
	assert.Equal(t, "redis-cli SAVE", cfg.Services["redis"].PersistCommand)
	require.Contains(t, cfg.Services, "api")
	assert.Equal(t, 8080, cfg.Services["api"].Port)
	assert.Equal(t, "/healthz", cfg.Services["api"].Endpoint)

	// The singleton is now loaded.
	assert.Equal(t, cfg, GetConfig())
}
