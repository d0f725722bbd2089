/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package health

import (
	"context"
	"time"
)

// StubHealthChecker provides a basic implementation of the HealthChecker
// interface for testing purposes
type StubHealthChecker struct {
	CheckerType   HealthCheckType
	IsHealthy     bool
	ErrorToReturn error
	Config        HealthCheckConfig

	// Checks counts how many times Check or CheckWithDetails was called.
	Checks int
}

var _ HealthChecker = (*StubHealthChecker)(nil)

// NewStubHealthChecker creates a new stub health checker with default values
func NewStubHealthChecker(checkerType HealthCheckType, healthy bool) *StubHealthChecker {
	return &StubHealthChecker{
		CheckerType:   checkerType,
		IsHealthy:     healthy,
		ErrorToReturn: nil,
		Config: HealthCheckConfig{
			Type:             checkerType,
			Timeout:          time.Second * 5,
			RetryInterval:    time.Second,
			SuccessThreshold: 1,
			FailureThreshold: 3,
		},
	}
}

// Check always returns the preconfigured health status
func (s *StubHealthChecker) Check(ctx context.Context, service string) (bool, error) {
	s.Checks++
	return s.IsHealthy, s.ErrorToReturn
}

// CheckWithDetails returns a detailed health check result
func (s *StubHealthChecker) CheckWithDetails(ctx context.Context, service string) (HealthCheckResult, error) {
	s.Checks++
	message := "Service is healthy"
	if !s.IsHealthy {
		message = "Service is unhealthy"
	}

	result := HealthCheckResult{
		Healthy:   s.IsHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}

	return result, s.ErrorToReturn
}

// Configure updates the stub's configuration
func (s *StubHealthChecker) Configure(config HealthCheckConfig) error {
	s.Config = config
	return nil
}

// GetType returns the health checker type
func (s *StubHealthChecker) GetType() HealthCheckType {
	return s.CheckerType
}
