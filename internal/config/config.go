package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"dosnap/internal/rollback"
	"dosnap/internal/strategy"
)

// Example YAML configuration:
//
// BACKUP_ROOT: /var/lib/dosnap
// COMPOSE_FILE: docker-compose.yml
// CONFIG_PATHS:
//   - docker-compose.yml
//   - nginx/nginx.conf
//   - .env
// MAX_ROLLBACK_POINTS: 10
// OPERATION_TIMEOUT: 30s
// WORKERS: 4
// VERBOSE: false
// HISTORY_DB: ""   # optional path; empty disables execution history
// services:
//   redis:
//     kind: stateful-cache
//     persist_command: "redis-cli SAVE"
//   api:
//     kind: http
//     port: 8080
//     endpoint: /healthz
//   nginx:
//     kind: config-reload
//     reload_signal: SIGHUP
//
// Services not listed get the generic stop/start strategy.

// Config is the top-level configuration struct for the application
type Config struct {
	BackupRoot        string                     `mapstructure:"BACKUP_ROOT"`
	ComposeFilePath   string                     `mapstructure:"COMPOSE_FILE"`
	ConfigPaths       []string                   `mapstructure:"CONFIG_PATHS"`
	MaxRollbackPoints int                        `mapstructure:"MAX_ROLLBACK_POINTS"`
	OperationTimeout  time.Duration              `mapstructure:"OPERATION_TIMEOUT"`
	Workers           int                        `mapstructure:"WORKERS"`
	Verbose           bool                       `mapstructure:"VERBOSE"`
	HistoryDB         string                     `mapstructure:"HISTORY_DB"`
	Services          map[string]strategy.Config `mapstructure:"services"`
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// ValidateConfig checks the loaded configuration for obvious mistakes before
// any command runs with it.
func ValidateConfig(c *Config) error {
	if c == nil {
		return nil
	}
	if c.BackupRoot == "" {
		return fmt.Errorf("BACKUP_ROOT must not be empty")
	}
	if c.MaxRollbackPoints < 0 {
		return fmt.Errorf("MAX_ROLLBACK_POINTS must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("WORKERS must not be negative")
	}
	for name, svc := range c.Services {
		if err := svc.Validate(); err != nil {
			return fmt.Errorf("services.%s: %w", name, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from file, env, and flags (in that order of precedence)
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	var loadErr error
	cfgOnce.Do(func() {
		v := viper.New()

		// Set config file if provided
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("dosnap")
			v.AddConfigPath(".")
			v.AddConfigPath("/etc/dosnap/")
		}

		v.SetConfigType("yaml")

		// Bind environment variables (upper-case, underscores)
		v.AutomaticEnv()

		// Bind flags if provided
		if flags != nil {
			_ = v.BindPFlags(flags)
		}

		// Set defaults
		v.SetDefault("BACKUP_ROOT", ".dosnap")
		v.SetDefault("COMPOSE_FILE", "docker-compose.yml")
		v.SetDefault("MAX_ROLLBACK_POINTS", 10)
		v.SetDefault("OPERATION_TIMEOUT", "30s")
		v.SetDefault("WORKERS", 4)
		v.SetDefault("VERBOSE", false)

		// Read config file if present
		_ = v.ReadInConfig() // Ignore error if not found

		var c Config
		if err := v.Unmarshal(&c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal config: %w", err)
			return
		}

		// Expand environment variables in path-valued settings
		c.BackupRoot = os.ExpandEnv(c.BackupRoot)
		c.ComposeFilePath = os.ExpandEnv(c.ComposeFilePath)
		c.HistoryDB = os.ExpandEnv(c.HistoryDB)
		for i, p := range c.ConfigPaths {
			c.ConfigPaths[i] = os.ExpandEnv(p)
		}

		// The compose file is always part of the captured config set
		if c.ComposeFilePath != "" && !containsPath(c.ConfigPaths, c.ComposeFilePath) {
			c.ConfigPaths = append([]string{c.ComposeFilePath}, c.ConfigPaths...)
		}

		if err := ValidateConfig(&c); err != nil {
			loadErr = fmt.Errorf("invalid config: %w", err)
			return
		}
		cfg = &c
	})
	if loadErr != nil {
		return nil, loadErr
	}
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	return cfg, nil
}

func containsPath(paths []string, p string) bool {
	for _, existing := range paths {
		if existing == p {
			return true
		}
	}
	return false
}

// GetConfig returns the loaded config singleton
func GetConfig() *Config {
	if cfg == nil {
		panic("config not loaded: call LoadConfig first")
	}
	return cfg
}

// ManagerConfig translates the application configuration into the rollback
// manager's own configuration.
func (c *Config) ManagerConfig() rollback.ManagerConfig {
	sourceRoot := ""
	if c.ComposeFilePath != "" {
		if abs, err := filepath.Abs(c.ComposeFilePath); err == nil {
			sourceRoot = filepath.Dir(abs)
		}
	}
	return rollback.ManagerConfig{
		BackupRoot:        c.BackupRoot,
		SourceRoot:        sourceRoot,
		ConfigPaths:       c.ConfigPaths,
		MaxRollbackPoints: c.MaxRollbackPoints,
		OperationTimeout:  c.OperationTimeout,
		Workers:           c.Workers,
		ServiceStrategies: c.Services,
	}
}
