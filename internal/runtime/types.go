/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package runtime

import (
	"context"
	"errors"
)

// ErrServiceNotFound indicates no container exists for the requested service
var ErrServiceNotFound = errors.New("service not found")

// Adapter defines the container runtime operations the rollback core depends on.
// The core never talks to a container engine directly; everything goes through
// this interface so the engine can be swapped or stubbed out in tests.
type Adapter interface {
	// ListServices returns the names of all services currently defined
	// in the deployment, whether running or not.
	ListServices(ctx context.Context) ([]string, error)

	// GetImage returns the exact image reference the service's container
	// was created from.
	GetImage(ctx context.Context, service string) (string, error)

	// IsRunning reports whether the service's container is currently running.
	IsRunning(ctx context.Context, service string) (bool, error)

	// Stop stops the service's container.
	Stop(ctx context.Context, service string) error

	// Start starts the service's container.
	Start(ctx context.Context, service string) error

	// SetImage recreates the service's container so that it runs the given
	// image reference. The container is left created but not started.
	SetImage(ctx context.Context, service string, ref string) error

	// ServiceVolumes returns the named volumes mounted by the service.
	ServiceVolumes(ctx context.Context, service string) ([]string, error)

	// ExportVolume serializes the named volume's contents into a compressed
	// archive at destPath.
	ExportVolume(ctx context.Context, volume string, destPath string) error

	// ImportVolume clears the named volume and extracts the archive at
	// srcPath into it. Destructive: the volume's previous contents are lost.
	ImportVolume(ctx context.Context, volume string, srcPath string) error

	// SignalService delivers a signal (e.g. "SIGHUP") to the service's
	// main process without stopping the container.
	SignalService(ctx context.Context, service string, signal string) error

	// ExecInService runs a command inside the service's running container
	// and returns an error if the command exits non-zero.
	ExecInService(ctx context.Context, service string, cmd []string) error
}
