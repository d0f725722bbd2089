/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package health

import (
	"context"
	"fmt"
	"strings"

	"dosnap/internal/runtime"
)

// CommandHealthChecker implements the HealthChecker interface by executing a
// command inside the service's container through the runtime adapter. A zero
// exit code means healthy.
type CommandHealthChecker struct {
	*BaseChecker
	adapter runtime.Adapter
}

var _ HealthChecker = (*CommandHealthChecker)(nil)

// NewCommandHealthChecker creates a new command-based health checker.
func NewCommandHealthChecker(config HealthCheckConfig, adapter runtime.Adapter) (*CommandHealthChecker, error) {
	if config.Type == "" {
		config.Type = CommandHealthCheck
	} else if config.Type != CommandHealthCheck {
		return nil, fmt.Errorf("invalid health check type for CommandHealthChecker: %s", config.Type)
	}
	if adapter == nil {
		return nil, fmt.Errorf("runtime adapter is required for command health checks")
	}

	baseChecker, err := NewBaseChecker(CommandHealthCheck, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create base checker: %w", err)
	}

	return &CommandHealthChecker{
		BaseChecker: baseChecker,
		adapter:     adapter,
	}, nil
}

// Check runs the configured command inside the service's container.
func (c *CommandHealthChecker) Check(ctx context.Context, service string) (bool, error) {
	result, err := c.CheckWithDetails(ctx, service)
	return result.Healthy, err
}

// CheckWithDetails runs the command and returns detailed information.
func (c *CommandHealthChecker) CheckWithDetails(ctx context.Context, service string) (HealthCheckResult, error) {
	checkCtx, cancel := context.WithTimeout(ctx, c.Config.Timeout)
	defer cancel()

	cmd := strings.Fields(c.Config.Command)
	err := c.adapter.ExecInService(checkCtx, service, cmd)
	if err != nil {
		message := fmt.Sprintf("Command check %q failed in service %s: %v", c.Config.Command, service, err)
		c.UpdateStatus(false, message)
		return c.CreateHealthCheckResult(), nil
	}

	message := fmt.Sprintf("Command check %q succeeded in service %s", c.Config.Command, service)
	c.UpdateStatus(true, message)
	return c.CreateHealthCheckResult(), nil
}
