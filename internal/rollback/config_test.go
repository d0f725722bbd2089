/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManagerConfigValidate(t *testing.T) {
	valid := ManagerConfig{BackupRoot: "/var/lib/dosnap"}
	assert.NoError(t, valid.Validate())

	missing := ManagerConfig{}
	assert.Error(t, missing.Validate())

	negative := ManagerConfig{BackupRoot: "x", MaxRollbackPoints: -1}
	assert.Error(t, negative.Validate())

	badWorkers := ManagerConfig{BackupRoot: "x", Workers: -2}
	assert.Error(t, badWorkers.Validate())
}

func TestManagerConfigApplyDefaults(t *testing.T) {
	cfg := ManagerConfig{BackupRoot: "/deploy/.dosnap"}
	cfg.ApplyDefaults()

	assert.Equal(t, filepath.Dir("/deploy/.dosnap"), cfg.SourceRoot)
	assert.Equal(t, 10, cfg.MaxRollbackPoints)
	assert.Equal(t, 30*time.Second, cfg.OperationTimeout)
	assert.Equal(t, 4, cfg.Workers)
}

func TestManagerConfigApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := ManagerConfig{
		BackupRoot:        "/deploy/.dosnap",
		SourceRoot:        "/elsewhere",
		MaxRollbackPoints: 3,
		OperationTimeout:  time.Minute,
		Workers:           8,
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "/elsewhere", cfg.SourceRoot)
	assert.Equal(t, 3, cfg.MaxRollbackPoints)
	assert.Equal(t, time.Minute, cfg.OperationTimeout)
	assert.Equal(t, 8, cfg.Workers)
}
