/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dosnap/internal/runtime"
)

func TestArchiverBackupExportsAllVolumes(t *testing.T) {
	backupRoot := setupTestDir(t)
	adapter := runtime.NewStubAdapter(map[string]string{"db": "postgres:16"})

	archiver, err := NewArchiver(backupRoot, adapter, nil)
	require.NoError(t, err)

	archived, err := archiver.Backup(context.Background(), "rb-vol000000000", []string{"pgdata", "pgwal"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pgdata", "pgwal"}, archived)

	for _, volume := range []string{"pgdata", "pgwal"} {
		_, statErr := os.Stat(archiver.ArchivePath("rb-vol000000000", volume))
		assert.NoError(t, statErr)
	}
	assert.Equal(t, 2, adapter.CallCount("ExportVolume"))
}

func TestArchiverBackupEmptyListIsNoOp(t *testing.T) {
	adapter := runtime.NewStubAdapter(nil)

	archiver, err := NewArchiver(setupTestDir(t), adapter, nil)
	require.NoError(t, err)

	archived, err := archiver.Backup(context.Background(), "rb-vol000000001", nil)
	require.NoError(t, err)
	assert.Empty(t, archived)
	assert.Equal(t, 0, adapter.CallCount("ExportVolume"))
}

func TestArchiverBackupAbortsOnExportFailure(t *testing.T) {
	adapter := runtime.NewStubAdapter(nil)
	adapter.FailExport["pgdata"] = true

	archiver, err := NewArchiver(setupTestDir(t), adapter, nil)
	require.NoError(t, err)

	_, err = archiver.Backup(context.Background(), "rb-vol000000002", []string{"pgdata", "pgwal"})
	require.Error(t, err)
	assert.Equal(t, "archiver", GetErrorComponent(err))

	// The failure on the first volume prevents any further exports.
	assert.Equal(t, 0, adapter.ServiceCallCount("ExportVolume", "pgwal"))
}

func TestArchiverRestoreImportsArchives(t *testing.T) {
	backupRoot := setupTestDir(t)
	adapter := runtime.NewStubAdapter(nil)

	archiver, err := NewArchiver(backupRoot, adapter, nil)
	require.NoError(t, err)

	_, err = archiver.Backup(context.Background(), "rb-vol000000003", []string{"pgdata"})
	require.NoError(t, err)

	require.NoError(t, archiver.Restore(context.Background(), "rb-vol000000003", []string{"pgdata"}))
	assert.Equal(t, 1, adapter.ServiceCallCount("ImportVolume", "pgdata"))
}

func TestArchiverRestoreFailsOnMissingArchive(t *testing.T) {
	adapter := runtime.NewStubAdapter(nil)

	archiver, err := NewArchiver(setupTestDir(t), adapter, nil)
	require.NoError(t, err)

	err = archiver.Restore(context.Background(), "rb-vol000000004", []string{"ghost"})
	require.Error(t, err)
	assert.Equal(t, 0, adapter.CallCount("ImportVolume"))
}

func TestArchiverRestorePropagatesImportFailure(t *testing.T) {
	backupRoot := setupTestDir(t)
	adapter := runtime.NewStubAdapter(nil)
	adapter.FailImport["pgdata"] = true

	archiver, err := NewArchiver(backupRoot, adapter, nil)
	require.NoError(t, err)

	_, err = archiver.Backup(context.Background(), "rb-vol000000005", []string{"pgdata"})
	require.NoError(t, err)

	err = archiver.Restore(context.Background(), "rb-vol000000005", []string{"pgdata"})
	require.Error(t, err)
	assert.Equal(t, "archiver", GetErrorComponent(err))
}
