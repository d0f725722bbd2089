/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package health

import (
	"fmt"

	"dosnap/internal/runtime"
)

// NewHealthChecker creates a new health checker based on the configuration
// type. Docker and command checks need the runtime adapter; HTTP and TCP
// checks dial the service directly and ignore it.
func NewHealthChecker(config HealthCheckConfig, adapter runtime.Adapter) (HealthChecker, error) {
	if config.Type == "" {
		return nil, fmt.Errorf("health check type must be specified")
	}

	switch config.Type {
	case DockerHealthCheck:
		return NewDockerHealthChecker(config, adapter)
	case HTTPHealthCheck:
		return NewHTTPHealthChecker(config)
	case TCPHealthCheck:
		return NewTCPHealthChecker(config)
	case CommandHealthCheck:
		return NewCommandHealthChecker(config, adapter)
	default:
		return nil, fmt.Errorf("unsupported health check type: %s", config.Type)
	}
}
