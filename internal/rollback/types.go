/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Point is an immutable record of a captured deployment state. Once appended
// to the repository it is never modified, only deleted wholesale.
type Point struct {
	// ID is the unique opaque identifier, e.g. "rb-3fa9c21be04d".
	ID string `json:"id"`

	// Timestamp is the creation time in UTC.
	Timestamp time.Time `json:"timestamp"`

	// Description is free-form human text describing why the point was taken.
	Description string `json:"description"`

	// Services lists the service names covered by this snapshot, in the
	// order they were resolved at capture time.
	Services []string `json:"services"`

	// ImageRefs maps service name to the exact image reference running at
	// capture time.
	ImageRefs map[string]string `json:"image_references"`

	// ConfigHashes maps relative config file path to its SHA-256 content
	// hash. Keys are always relative so a backup root can be restored onto
	// a different directory.
	ConfigHashes map[string]string `json:"config_hashes"`

	// Volumes lists the named volumes archived with this point. Empty means
	// volume backup was not requested and volume restore must never run.
	Volumes []string `json:"volumes"`

	// Metadata is an informational key/value bag (hostname, capture flags).
	// Restore logic never depends on it.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ServiceResult is the per-service outcome of a restore attempt. It is
// ephemeral: reported to the caller and the history log, never persisted in
// the rollback index.
type ServiceResult struct {
	Service        string
	Succeeded      bool
	Reason         string
	HealthVerified bool
	State          ServiceState
}

// DefaultDescription is used when a rollback point is created without one.
const DefaultDescription = "manual rollback point"

// idRandomBytes is the entropy behind a point ID: 6 bytes, 12 hex chars.
const idRandomBytes = 6

// NewPointID generates a random rollback point identifier.
func NewPointID() (string, error) {
	buf := make([]byte, idRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate rollback point id: %w", err)
	}
	return "rb-" + hex.EncodeToString(buf), nil
}
