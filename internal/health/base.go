/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package health

import (
	"context"
	"sync"
	"time"
)

// BaseChecker provides common threshold and state tracking that specific
// health checker implementations embed.
type BaseChecker struct {
	// Config holds the health check configuration
	Config HealthCheckConfig

	// checkerType is the type of health checker
	checkerType HealthCheckType

	// successCount tracks consecutive successful checks
	successCount int

	// failureCount tracks consecutive failed checks
	failureCount int

	// healthStatus is the current health status
	healthStatus bool

	// lastCheckTime is when the last check was performed
	lastCheckTime time.Time

	// lastMessage is the message from the last check
	lastMessage string

	// mu protects concurrent access to the checker's state
	mu sync.RWMutex
}

// NewBaseChecker creates a new base health checker with the given configuration
func NewBaseChecker(checkerType HealthCheckType, config HealthCheckConfig) (*BaseChecker, error) {
	configCopy := config
	if err := ValidateConfig(&configCopy); err != nil {
		return nil, err
	}

	return &BaseChecker{
		Config:       configCopy,
		checkerType:  checkerType,
		healthStatus: false, // Initially not healthy until checked
	}, nil
}

// GetType returns the type of health checker
func (b *BaseChecker) GetType() HealthCheckType {
	return b.checkerType
}

// Configure updates the health checker's configuration
func (b *BaseChecker) Configure(config HealthCheckConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	configCopy := config
	if err := ValidateConfig(&configCopy); err != nil {
		return err
	}

	b.Config = configCopy

	// Reset state since configuration has changed
	b.successCount = 0
	b.failureCount = 0

	return nil
}

// UpdateStatus updates the health status based on the check result.
// Implementations call this after each check so the success/failure
// thresholds are applied consistently.
func (b *BaseChecker) UpdateStatus(healthy bool, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastCheckTime = time.Now()
	b.lastMessage = message

	if healthy {
		b.successCount++
		b.failureCount = 0
		if b.successCount >= b.Config.SuccessThreshold {
			b.healthStatus = true
		}
	} else {
		b.failureCount++
		b.successCount = 0
		if b.failureCount >= b.Config.FailureThreshold {
			b.healthStatus = false
		}
	}
}

// GetStatus returns the current health status and metadata
func (b *BaseChecker) GetStatus() (bool, string, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.healthStatus, b.lastMessage, b.lastCheckTime
}

// CreateHealthCheckResult creates a HealthCheckResult from the current status
func (b *BaseChecker) CreateHealthCheckResult() HealthCheckResult {
	healthy, message, timestamp := b.GetStatus()

	return HealthCheckResult{
		Healthy:   healthy,
		Message:   message,
		Timestamp: timestamp,
	}
}

// Check must be overridden by a specific health checker implementation.
func (b *BaseChecker) Check(ctx context.Context, service string) (bool, error) {
	panic("BaseChecker.Check must be overridden by a specific health checker implementation")
}

// CheckWithDetails wraps Check in a HealthCheckResult. Implementations
// usually override it for richer messages.
func (b *BaseChecker) CheckWithDetails(ctx context.Context, service string) (HealthCheckResult, error) {
	_, err := b.Check(ctx, service)
	if err != nil {
		return HealthCheckResult{
			Healthy:   false,
			Message:   err.Error(),
			Timestamp: time.Now(),
		}, err
	}
	return b.CreateHealthCheckResult(), nil
}
