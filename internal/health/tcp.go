/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package health

import (
	"context"
	"fmt"
	"net"
)

// TCPHealthChecker implements the HealthChecker interface by attempting TCP
// connections to the service's published port.
type TCPHealthChecker struct {
	*BaseChecker
	dialer *net.Dialer
}

var _ HealthChecker = (*TCPHealthChecker)(nil)

// NewTCPHealthChecker creates a new health checker that dials the service.
func NewTCPHealthChecker(config HealthCheckConfig) (*TCPHealthChecker, error) {
	if config.Type == "" {
		config.Type = TCPHealthCheck
	} else if config.Type != TCPHealthCheck {
		return nil, fmt.Errorf("invalid health check type for TCPHealthChecker: %s", config.Type)
	}

	baseChecker, err := NewBaseChecker(TCPHealthCheck, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create base checker: %w", err)
	}

	return &TCPHealthChecker{
		BaseChecker: baseChecker,
		dialer:      &net.Dialer{Timeout: baseChecker.Config.Timeout},
	}, nil
}

// Check performs a health check by opening a TCP connection.
func (t *TCPHealthChecker) Check(ctx context.Context, service string) (bool, error) {
	result, err := t.CheckWithDetails(ctx, service)
	return result.Healthy, err
}

// CheckWithDetails attempts the connection and returns detailed information.
func (t *TCPHealthChecker) CheckWithDetails(ctx context.Context, service string) (HealthCheckResult, error) {
	address := fmt.Sprintf("%s:%d", t.Config.Host, t.Config.Port)

	checkCtx, cancel := context.WithTimeout(ctx, t.Config.Timeout)
	defer cancel()

	conn, err := t.dialer.DialContext(checkCtx, "tcp", address)
	if err != nil {
		message := fmt.Sprintf("TCP connection to %s failed: %v", address, err)
		t.UpdateStatus(false, message)
		return t.CreateHealthCheckResult(), nil
	}
	conn.Close()

	message := fmt.Sprintf("TCP connection to %s succeeded", address)
	t.UpdateStatus(true, message)
	return t.CreateHealthCheckResult(), nil
}
