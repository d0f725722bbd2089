/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/klauspost/pgzip"
)

// composeServiceLabel is the label Docker Compose stamps on every container
// it manages, holding the service name from the compose file.
const composeServiceLabel = "com.docker.compose.service"

// defaultHelperImage is the image used for throwaway containers that give us
// filesystem access to named volumes.
const defaultHelperImage = "busybox:stable"

// Variable for testing
var execCommand = func(command string, args ...string) *exec.Cmd {
	return exec.Command(command, args...)
}

// DockerAdapter implements Adapter against a Docker engine managing a
// Compose deployment. Inspection, stop/start, signals and volume transfer go
// through the Docker API; container recreation goes through the compose CLI
// because only compose knows how to rebuild a service's full container spec.
type DockerAdapter struct {
	cli             client.APIClient
	composeFilePath string
	helperImage     string
}

var _ Adapter = (*DockerAdapter)(nil)

// NewDockerAdapter creates an adapter bound to the given compose file.
func NewDockerAdapter(composeFilePath string) (*DockerAdapter, error) {
	if composeFilePath == "" {
		return nil, fmt.Errorf("compose file path is required")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &DockerAdapter{
		cli:             cli,
		composeFilePath: composeFilePath,
		helperImage:     defaultHelperImage,
	}, nil
}

// NewDockerAdapterWithClient creates an adapter using an existing API client.
// Primarily useful for tests.
func NewDockerAdapterWithClient(cli client.APIClient, composeFilePath string) *DockerAdapter {
	return &DockerAdapter{
		cli:             cli,
		composeFilePath: composeFilePath,
		helperImage:     defaultHelperImage,
	}
}

// containerID resolves the container for a compose service, preferring a
// running one when several exist.
func (d *DockerAdapter) containerID(ctx context.Context, service string) (string, error) {
	f := filters.NewArgs(filters.Arg("label", composeServiceLabel+"="+service))
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return "", fmt.Errorf("failed to list containers for service %s: %w", service, err)
	}
	if len(containers) == 0 {
		return "", fmt.Errorf("%w: %s", ErrServiceNotFound, service)
	}

	for _, c := range containers {
		if c.State == "running" {
			return c.ID, nil
		}
	}
	return containers[0].ID, nil
}

// ListServices returns every compose service with at least one container.
func (d *DockerAdapter) ListServices(ctx context.Context) ([]string, error) {
	f := filters.NewArgs(filters.Arg("label", composeServiceLabel))
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	seen := make(map[string]struct{})
	var services []string
	for _, c := range containers {
		name := c.Labels[composeServiceLabel]
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		services = append(services, name)
	}
	return services, nil
}

// GetImage returns the image reference the service's container was created from.
func (d *DockerAdapter) GetImage(ctx context.Context, service string) (string, error) {
	id, err := d.containerID(ctx, service)
	if err != nil {
		return "", err
	}

	info, err := d.cli.ContainerInspect(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to inspect container for service %s: %w", service, err)
	}
	return info.Config.Image, nil
}

// IsRunning reports whether the service's container is running.
func (d *DockerAdapter) IsRunning(ctx context.Context, service string) (bool, error) {
	id, err := d.containerID(ctx, service)
	if err != nil {
		return false, err
	}

	info, err := d.cli.ContainerInspect(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to inspect container for service %s: %w", service, err)
	}
	return info.State != nil && info.State.Running, nil
}

// Stop stops the service's container.
func (d *DockerAdapter) Stop(ctx context.Context, service string) error {
	id, err := d.containerID(ctx, service)
	if err != nil {
		return err
	}

	if err := d.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("failed to stop service %s: %w", service, err)
	}
	return nil
}

// Start starts the service's container.
func (d *DockerAdapter) Start(ctx context.Context, service string) error {
	id, err := d.containerID(ctx, service)
	if err != nil {
		return err
	}

	if err := d.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start service %s: %w", service, err)
	}
	return nil
}

// SetImage recreates the service's container via the compose CLI and then
// verifies the new container actually carries the requested reference. The
// compose file must already contain ref for the service; the rollback flow
// guarantees that by restoring configs before images.
func (d *DockerAdapter) SetImage(ctx context.Context, service string, ref string) error {
	cmd := execCommand("docker-compose", "-f", d.composeFilePath, "create", "--force-recreate", "--no-build", service)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to recreate service %s: %s: %w", service, string(output), err)
	}

	current, err := d.GetImage(ctx, service)
	if err != nil {
		return err
	}
	if !sameImageRef(current, ref) {
		return fmt.Errorf("service %s recreated with image %s, wanted %s", service, current, ref)
	}
	return nil
}

// sameImageRef compares two image references after normalization, so that
// e.g. "nginx:1.25" and "docker.io/library/nginx:1.25" compare equal.
func sameImageRef(a, b string) bool {
	na, err := reference.ParseNormalizedNamed(a)
	if err != nil {
		return a == b
	}
	nb, err := reference.ParseNormalizedNamed(b)
	if err != nil {
		return a == b
	}
	return reference.TagNameOnly(na).String() == reference.TagNameOnly(nb).String()
}

// ServiceVolumes returns the named volumes mounted by the service's container.
func (d *DockerAdapter) ServiceVolumes(ctx context.Context, service string) ([]string, error) {
	id, err := d.containerID(ctx, service)
	if err != nil {
		return nil, err
	}

	info, err := d.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container for service %s: %w", service, err)
	}

	var volumes []string
	for _, m := range info.Mounts {
		if m.Type == mount.TypeVolume && m.Name != "" {
			volumes = append(volumes, m.Name)
		}
	}
	return volumes, nil
}

// helperContainer creates a stopped throwaway container with the volume
// mounted at /volume. The caller must remove it.
func (d *DockerAdapter) helperContainer(ctx context.Context, volume string, cmd []string) (string, error) {
	created, err := d.cli.ContainerCreate(ctx,
		&container.Config{Image: d.helperImage, Cmd: cmd},
		&container.HostConfig{Binds: []string{volume + ":/volume"}},
		nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("failed to create helper container for volume %s: %w", volume, err)
	}
	return created.ID, nil
}

func (d *DockerAdapter) removeHelper(ctx context.Context, id string) {
	_ = d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

// ExportVolume streams the volume's contents as a tar from a helper container
// and writes it gzip-compressed to destPath.
func (d *DockerAdapter) ExportVolume(ctx context.Context, volume string, destPath string) error {
	id, err := d.helperContainer(ctx, volume, []string{"true"})
	if err != nil {
		return err
	}
	defer d.removeHelper(ctx, id)

	reader, _, err := d.cli.CopyFromContainer(ctx, id, "/volume")
	if err != nil {
		return fmt.Errorf("failed to export volume %s: %w", volume, err)
	}
	defer reader.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", destPath, err)
	}
	defer out.Close()

	gz := pgzip.NewWriter(out)
	if _, err := io.Copy(gz, reader); err != nil {
		return fmt.Errorf("failed to write archive for volume %s: %w", volume, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive for volume %s: %w", volume, err)
	}
	return out.Sync()
}

// ImportVolume clears the volume inside a helper container and extracts the
// archive at srcPath into it. The volume's previous contents are lost.
func (d *DockerAdapter) ImportVolume(ctx context.Context, volume string, srcPath string) error {
	id, err := d.helperContainer(ctx, volume, []string{"sh", "-c", "rm -rf /volume/* /volume/.[!.]* 2>/dev/null; true"})
	if err != nil {
		return err
	}
	defer d.removeHelper(ctx, id)

	// Run the clear command and wait for it to finish before extracting.
	if err := d.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to clear volume %s: %w", volume, err)
	}
	waitCh, errCh := d.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed waiting for volume %s clear: %w", volume, err)
		}
	case <-waitCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", srcPath, err)
	}
	defer in.Close()

	gz, err := pgzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("failed to read archive %s: %w", srcPath, err)
	}
	defer gz.Close()

	// The export tar is rooted at "volume/", so extracting at / lands the
	// entries back under /volume.
	if err := d.cli.CopyToContainer(ctx, id, "/", gz, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("failed to import volume %s: %w", volume, err)
	}
	return nil
}

// SignalService delivers a signal to the service's main process.
func (d *DockerAdapter) SignalService(ctx context.Context, service string, signal string) error {
	id, err := d.containerID(ctx, service)
	if err != nil {
		return err
	}

	if err := d.cli.ContainerKill(ctx, id, signal); err != nil {
		return fmt.Errorf("failed to signal service %s with %s: %w", service, signal, err)
	}
	return nil
}

// ExecInService runs a command inside the service's running container.
func (d *DockerAdapter) ExecInService(ctx context.Context, service string, cmd []string) error {
	id, err := d.containerID(ctx, service)
	if err != nil {
		return err
	}

	resp, err := d.cli.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create exec in service %s: %w", service, err)
	}

	if err := d.cli.ContainerExecStart(ctx, resp.ID, container.ExecStartOptions{}); err != nil {
		return fmt.Errorf("failed to run %v in service %s: %w", cmd, service, err)
	}

	// ContainerExecStart returns as soon as the process is started; the
	// exit code is only meaningful once the process is no longer running.
	code, err := waitExecDone(ctx, execPollInterval, func(ctx context.Context) (container.ExecInspect, error) {
		return d.cli.ContainerExecInspect(ctx, resp.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to wait for %v in service %s: %w", cmd, service, err)
	}
	if code != 0 {
		return fmt.Errorf("command %v in service %s exited with code %d", cmd, service, code)
	}
	return nil
}

// execPollInterval is how often a started exec process is re-inspected while
// waiting for it to finish.
const execPollInterval = 100 * time.Millisecond

// waitExecDone polls inspect until the exec process has finished and returns
// its exit code, or the context error if the caller gives up first.
func waitExecDone(ctx context.Context, interval time.Duration, inspect func(context.Context) (container.ExecInspect, error)) (int, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := inspect(ctx)
		if err != nil {
			return 0, err
		}
		if !st.Running {
			return st.ExitCode, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}
