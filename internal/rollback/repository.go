/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"

	"dosnap/internal/logx"
)

const (
	indexFileName = "index.json"
	lockFileName  = "index.lock"
)

// Repository persists the append-only, size-bounded index of rollback point
// metadata under a backup root directory. The on-disk layout is:
//
//	<root>/index.json
//	<root>/<id>/configs/<relative paths...>
//	<root>/<id>/volumes/<name>.tar.gz
//
// Every index mutation takes an advisory file lock and rewrites the index
// via a temp file and rename, so concurrent creations and deletions from
// separate processes cannot corrupt it.
type Repository struct {
	// Root is the backup root directory.
	Root string

	lock   *flock.Flock
	logger logx.Logger
}

// NewRepository creates a repository rooted at the given directory, creating
// it if needed.
func NewRepository(root string, logger logx.Logger) (*Repository, error) {
	if root == "" {
		return nil, fmt.Errorf("backup root is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup root: %w", err)
	}
	if logger == nil {
		logger = logx.NewDefaultLogger()
	}

	return &Repository{
		Root:   root,
		lock:   flock.New(filepath.Join(root, lockFileName)),
		logger: logger,
	}, nil
}

// PointDir returns the backing directory for a rollback point id.
func (r *Repository) PointDir(id string) string {
	return filepath.Join(r.Root, id)
}

func (r *Repository) indexPath() string {
	return filepath.Join(r.Root, indexFileName)
}

// load reads the full index in insertion order. A missing index file is an
// empty repository; an unreadable or unparsable one is ErrRepository.
func (r *Repository) load() ([]Point, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read index: %v", ErrRepository, err)
	}

	var points []Point
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("%w: index is corrupt: %v", ErrRepository, err)
	}
	return points, nil
}

// save atomically replaces the index file. The temp file lives in the same
// directory so the rename never crosses filesystems.
func (r *Repository) save(points []Point) error {
	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to serialize index: %v", ErrRepository, err)
	}

	tmp, err := os.CreateTemp(r.Root, indexFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp index: %v", ErrRepository, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write index: %v", ErrRepository, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to sync index: %v", ErrRepository, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to close index: %v", ErrRepository, err)
	}

	if err := os.Rename(tmpName, r.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: failed to replace index: %v", ErrRepository, err)
	}
	return nil
}

func (r *Repository) withLock(fn func() error) error {
	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("%w: failed to lock index: %v", ErrRepository, err)
	}
	defer r.lock.Unlock()
	return fn()
}

// Append writes the point's metadata into the index. On failure the index
// file is left in its pre-call state.
func (r *Repository) Append(point Point) error {
	return r.withLock(func() error {
		points, err := r.load()
		if err != nil {
			return err
		}
		for _, p := range points {
			if p.ID == point.ID {
				return fmt.Errorf("%w: duplicate rollback point id %s", ErrRepository, point.ID)
			}
		}
		return r.save(append(points, point))
	})
}

// Exists reports whether a point with the given id is in the index.
func (r *Repository) Exists(id string) (bool, error) {
	_, err := r.Get(id)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// IsNotFound reports whether the error is an ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// List returns every rollback point, newest first. Ties on timestamp are
// broken by insertion order, later insertions first.
func (r *Repository) List() ([]Point, error) {
	var points []Point
	err := r.withLock(func() error {
		loaded, err := r.load()
		if err != nil {
			return err
		}
		points = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse insertion order, then stable-sort by timestamp so equal
	// timestamps keep later-inserted-first ordering.
	out := make([]Point, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Get returns the rollback point with the given id, or ErrNotFound.
func (r *Repository) Get(id string) (Point, error) {
	var found Point
	err := r.withLock(func() error {
		points, err := r.load()
		if err != nil {
			return err
		}
		for _, p := range points {
			if p.ID == id {
				found = p
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	return found, err
}

// Delete removes the index entry and the point's backing directory. It
// returns false, not an error, when the id does not exist, so deletion is
// idempotent.
func (r *Repository) Delete(id string) (bool, error) {
	deleted := false
	err := r.withLock(func() error {
		points, err := r.load()
		if err != nil {
			return err
		}

		kept := points[:0]
		for _, p := range points {
			if p.ID == id {
				deleted = true
				continue
			}
			kept = append(kept, p)
		}
		if !deleted {
			return nil
		}

		if err := r.save(kept); err != nil {
			return err
		}
		if err := os.RemoveAll(r.PointDir(id)); err != nil {
			r.logger.Warn("Failed to remove backing directory for %s: %v", id, err)
		}
		return nil
	})
	return deleted, err
}

// EnforceRetention deletes the oldest points beyond max, oldest first by
// timestamp with ties broken by insertion order. Evictions are best-effort:
// a failure to remove one point's backing directory is logged and does not
// abort the others, and never fails the create that triggered it.
func (r *Repository) EnforceRetention(max int) error {
	if max <= 0 {
		return nil
	}
	return r.withLock(func() error {
		points, err := r.load()
		if err != nil {
			return err
		}
		if len(points) <= max {
			return nil
		}

		// Oldest first; stable sort keeps insertion order for equal
		// timestamps.
		ordered := make([]Point, len(points))
		copy(ordered, points)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		})

		evict := make(map[string]struct{})
		for _, p := range ordered[:len(points)-max] {
			evict[p.ID] = struct{}{}
		}

		kept := points[:0]
		for _, p := range points {
			if _, ok := evict[p.ID]; ok {
				continue
			}
			kept = append(kept, p)
		}
		if err := r.save(kept); err != nil {
			return err
		}

		for id := range evict {
			if err := os.RemoveAll(r.PointDir(id)); err != nil {
				r.logger.Warn("Retention eviction could not remove directory for %s: %v", id, err)
			} else {
				r.logger.Info("Evicted rollback point %s to respect retention limit %d", id, max)
			}
		}
		return nil
	})
}
