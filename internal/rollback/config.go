/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"fmt"
	"path/filepath"
	"time"

	"dosnap/internal/strategy"
)

// ManagerConfig contains configuration options for the rollback manager
type ManagerConfig struct {
	// BackupRoot is the directory where rollback points are stored
	BackupRoot string

	// SourceRoot is the directory config files are captured from and
	// restored to, typically the compose file's directory
	SourceRoot string

	// ConfigPaths are the configuration files captured into each rollback
	// point, relative to SourceRoot (or absolute)
	ConfigPaths []string

	// MaxRollbackPoints is the maximum number of rollback points to keep
	MaxRollbackPoints int

	// OperationTimeout bounds every individual runtime adapter call
	OperationTimeout time.Duration

	// Workers bounds how many services are processed concurrently within
	// one phase of a rollback
	Workers int

	// ServiceStrategies maps service name to its rollback strategy
	// configuration. Services without an entry use the generic strategy.
	ServiceStrategies map[string]strategy.Config
}

// Validate checks if the manager configuration is valid
func (c *ManagerConfig) Validate() error {
	if c.BackupRoot == "" {
		return fmt.Errorf("backup root is required")
	}
	if c.MaxRollbackPoints < 0 {
		return fmt.Errorf("max rollback points must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// ApplyDefaults sets default values for unspecified configuration options
func (c *ManagerConfig) ApplyDefaults() {
	if c.SourceRoot == "" {
		// By default capture configs relative to the backup root's parent
		c.SourceRoot = filepath.Dir(c.BackupRoot)
	}
	if c.MaxRollbackPoints == 0 {
		c.MaxRollbackPoints = 10
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 30 * time.Second
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
}
