/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package health

import (
	"context"
	"time"
)

// HealthCheckType defines the type of health check to perform
type HealthCheckType string

const (
	// DockerHealthCheck polls the runtime adapter's reported container state
	DockerHealthCheck HealthCheckType = "docker"

	// HTTPHealthCheck makes HTTP requests to a service endpoint
	HTTPHealthCheck HealthCheckType = "http"

	// TCPHealthCheck attempts to establish TCP connections
	TCPHealthCheck HealthCheckType = "tcp"

	// CommandHealthCheck executes commands inside the service's container
	CommandHealthCheck HealthCheckType = "command"
)

// HealthCheckResult represents the outcome of a health check
type HealthCheckResult struct {
	// Healthy indicates whether the check passed
	Healthy bool

	// Message provides additional details about the health check result
	Message string

	// Timestamp records when the check was performed
	Timestamp time.Time
}

// HealthCheckConfig defines the configuration for health checks
type HealthCheckConfig struct {
	// Type defines which health checker to use
	Type HealthCheckType

	// Host is the address HTTP and TCP checks connect to (default localhost)
	Host string

	// Endpoint is the URL path for HTTP checks
	Endpoint string

	// Port is the port number for HTTP and TCP checks
	Port int

	// Command is the command to execute inside the container for command checks
	Command string

	// Timeout is the maximum duration to wait for a health check to complete
	Timeout time.Duration

	// RetryInterval is the time to wait between retries
	RetryInterval time.Duration

	// SuccessThreshold is the number of consecutive successful checks required
	SuccessThreshold int

	// FailureThreshold is the number of consecutive failed checks required
	FailureThreshold int
}

// HealthChecker defines the interface for all health check implementations.
// Checks are keyed by service name; implementations that need container
// access go through the runtime adapter rather than a container engine
// directly.
type HealthChecker interface {
	// Check performs a health check on the specified service.
	// Returns true if healthy, false otherwise, along with any error encountered
	Check(ctx context.Context, service string) (bool, error)

	// CheckWithDetails performs a health check and returns detailed result information
	CheckWithDetails(ctx context.Context, service string) (HealthCheckResult, error)

	// Configure sets up the health checker with the provided configuration
	Configure(config HealthCheckConfig) error

	// GetType returns the type of this health checker
	GetType() HealthCheckType
}
