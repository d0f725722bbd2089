/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package health

import (
	"context"
	"fmt"
	"time"

	"dosnap/internal/runtime"
)

// DockerHealthChecker implements HealthChecker by asking the runtime adapter
// whether the service's container is running. It is the default, cheapest
// check: no network access, no exec, just container state.
type DockerHealthChecker struct {
	*BaseChecker
	adapter runtime.Adapter
}

var _ HealthChecker = (*DockerHealthChecker)(nil)

// NewDockerHealthChecker creates a health checker backed by container state.
func NewDockerHealthChecker(config HealthCheckConfig, adapter runtime.Adapter) (*DockerHealthChecker, error) {
	if config.Type == "" {
		config.Type = DockerHealthCheck
	} else if config.Type != DockerHealthCheck {
		return nil, fmt.Errorf("invalid health check type for DockerHealthChecker: %s", config.Type)
	}
	if adapter == nil {
		return nil, fmt.Errorf("runtime adapter is required for docker health checks")
	}

	baseChecker, err := NewBaseChecker(DockerHealthCheck, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create base checker: %w", err)
	}

	return &DockerHealthChecker{
		BaseChecker: baseChecker,
		adapter:     adapter,
	}, nil
}

// Check reports whether the service's container is in the running state.
func (d *DockerHealthChecker) Check(ctx context.Context, service string) (bool, error) {
	result, err := d.CheckWithDetails(ctx, service)
	return result.Healthy, err
}

// CheckWithDetails performs the container state check and returns details.
func (d *DockerHealthChecker) CheckWithDetails(ctx context.Context, service string) (HealthCheckResult, error) {
	checkCtx, cancel := context.WithTimeout(ctx, d.Config.Timeout)
	defer cancel()

	running, err := d.adapter.IsRunning(checkCtx, service)
	if err != nil {
		message := fmt.Sprintf("Failed to inspect service %s: %v", service, err)
		d.UpdateStatus(false, message)
		return HealthCheckResult{
			Healthy:   false,
			Message:   message,
			Timestamp: time.Now(),
		}, err
	}

	var message string
	if running {
		message = fmt.Sprintf("Service %s container is running", service)
	} else {
		message = fmt.Sprintf("Service %s container is not running", service)
	}
	d.UpdateStatus(running, message)

	return d.CreateHealthCheckResult(), nil
}
