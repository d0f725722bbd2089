/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"dosnap/internal/logx"
	"dosnap/internal/runtime"
)

const (
	volumesSubdir    = "volumes"
	archiveExtension = ".tar.gz"
)

// Archiver serializes named data volumes into compressed archives inside a
// rollback point's directory and restores them. Volume backup is explicit
// opt-in: the archiver only ever acts on the volume list it is handed.
type Archiver struct {
	// BackupRoot is the repository's backup root directory.
	BackupRoot string

	adapter runtime.Adapter
	logger  logx.Logger
}

// NewArchiver creates a volume archiver driving the given runtime adapter.
func NewArchiver(backupRoot string, adapter runtime.Adapter, logger logx.Logger) (*Archiver, error) {
	if backupRoot == "" {
		return nil, fmt.Errorf("backup root is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("runtime adapter is required")
	}
	if logger == nil {
		logger = logx.NewDefaultLogger()
	}

	return &Archiver{
		BackupRoot: backupRoot,
		adapter:    adapter,
		logger:     logger,
	}, nil
}

// ArchivePath returns the on-disk archive location for a volume within a
// rollback point.
func (a *Archiver) ArchivePath(id, volume string) string {
	return filepath.Join(a.BackupRoot, id, volumesSubdir, volume+archiveExtension)
}

// Backup exports each named volume into the point's directory and returns
// the archived names. A failure on any volume aborts the whole operation:
// the caller explicitly asked for these volumes, and a partial volume backup
// creates false confidence.
func (a *Archiver) Backup(ctx context.Context, id string, volumes []string) ([]string, error) {
	if len(volumes) == 0 {
		return nil, nil
	}

	dir := filepath.Join(a.BackupRoot, id, volumesSubdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create volume staging directory: %w", err)
	}

	archived := make([]string, 0, len(volumes))
	for _, volume := range volumes {
		dest := a.ArchivePath(id, volume)
		a.logger.Info("Archiving volume %s to %s", volume, dest)
		if err := a.adapter.ExportVolume(ctx, volume, dest); err != nil {
			return nil, WrapError(err, "archiver", fmt.Sprintf("failed to export volume %s", volume), "")
		}
		archived = append(archived, volume)
	}
	return archived, nil
}

// Restore clears each target volume and extracts its archive into it. This
// is destructive; the manager is responsible for obtaining confirmation
// before calling it, the archiver performs no confirmation logic.
func (a *Archiver) Restore(ctx context.Context, id string, volumes []string) error {
	for _, volume := range volumes {
		src := a.ArchivePath(id, volume)
		if _, err := os.Stat(src); err != nil {
			return WrapError(err, "archiver", fmt.Sprintf("archive for volume %s is missing", volume), "")
		}

		a.logger.Info("Restoring volume %s from %s", volume, src)
		if err := a.adapter.ImportVolume(ctx, volume, src); err != nil {
			return WrapError(err, "archiver", fmt.Sprintf("failed to import volume %s", volume), "")
		}
	}
	return nil
}
