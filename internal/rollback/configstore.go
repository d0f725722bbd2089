/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dosnap/internal/logx"
)

const configsSubdir = "configs"

// ConfigStore copies and hashes configuration files into a rollback point's
// staging directory and copies them back out on restore. Staged files are
// keyed by path relative to SourceRoot so a snapshot can be restored onto a
// different root directory.
type ConfigStore struct {
	// BackupRoot is the repository's backup root directory.
	BackupRoot string

	// SourceRoot is the directory config paths are resolved against and
	// relativized to, typically the compose file's directory.
	SourceRoot string

	logger logx.Logger
}

// NewConfigStore creates a config snapshot store.
func NewConfigStore(backupRoot, sourceRoot string, logger logx.Logger) (*ConfigStore, error) {
	if backupRoot == "" {
		return nil, fmt.Errorf("backup root is required")
	}
	if sourceRoot == "" {
		sourceRoot = "."
	}
	abs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source root: %w", err)
	}
	if logger == nil {
		logger = logx.NewDefaultLogger()
	}

	return &ConfigStore{
		BackupRoot: backupRoot,
		SourceRoot: abs,
		logger:     logger,
	}, nil
}

// stageDir returns the configs staging directory for a rollback point.
func (cs *ConfigStore) stageDir(id string) string {
	return filepath.Join(cs.BackupRoot, id, configsSubdir)
}

// relKey relativizes a path against SourceRoot. Paths outside the source
// root fall back to their base name so the key never escapes the staging
// directory.
func (cs *ConfigStore) relKey(path string) string {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cs.SourceRoot, path)
	}
	rel, err := filepath.Rel(cs.SourceRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return rel
}

// Capture reads each file, computes its SHA-256 hash and copies the raw
// bytes into the point's staging directory under the same relative path.
// Missing files are skipped with a warning because config layout varies
// between environments.
func (cs *ConfigStore) Capture(id string, paths []string) (map[string]string, error) {
	hashes := make(map[string]string)

	for _, path := range paths {
		src := path
		if !filepath.IsAbs(src) {
			src = filepath.Join(cs.SourceRoot, path)
		}

		if _, err := os.Stat(src); os.IsNotExist(err) {
			cs.logger.Warn("Config file %s does not exist, skipping", path)
			continue
		}

		rel := cs.relKey(path)
		dst := filepath.Join(cs.stageDir(id), rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return nil, fmt.Errorf("failed to stage config %s: %w", rel, err)
		}

		hash, err := copyAndHash(src, dst)
		if err != nil {
			return nil, fmt.Errorf("failed to capture config %s: %w", rel, err)
		}
		hashes[filepath.ToSlash(rel)] = hash
	}

	return hashes, nil
}

// Restore copies every staged file back to targetRoot joined with its
// relative path, creating parent directories as needed. Existing files are
// overwritten; files not part of the snapshot are left alone.
func (cs *ConfigStore) Restore(id string, targetRoot string) error {
	stage := cs.stageDir(id)
	if _, err := os.Stat(stage); os.IsNotExist(err) {
		// A point captured with no reachable config files has nothing
		// staged, which is a valid snapshot.
		cs.logger.Warn("No staged configs for %s, nothing to restore", id)
		return nil
	}

	return filepath.Walk(stage, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(stage, path)
		if err != nil {
			return fmt.Errorf("failed to relativize staged config %s: %w", path, err)
		}

		dst := filepath.Join(targetRoot, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		if _, err := copyAndHash(path, dst); err != nil {
			return fmt.Errorf("failed to restore config %s: %w", rel, err)
		}
		return nil
	})
}

// copyAndHash copies src to dst and returns the hex SHA-256 of the content.
func copyAndHash(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, hasher), in); err != nil {
		return "", fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := out.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
