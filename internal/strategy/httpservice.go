/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package strategy

import (
	"context"
	"fmt"
	"time"

	"dosnap/internal/health"
	"dosnap/internal/logx"
	"dosnap/internal/runtime"
)

// HTTPServiceStrategyImpl handles services exposing an HTTP health endpoint.
// After the container starts it polls the endpoint with retries until the
// service actually answers, which takes longer than the container merely
// running.
type HTTPServiceStrategyImpl struct {
	*GenericStrategyImpl
	httpChecker  health.HealthChecker
	readyTimeout time.Duration
	logger       logx.Logger
}

var _ RollbackStrategy = (*HTTPServiceStrategyImpl)(nil)

// NewHTTPServiceStrategy creates a strategy for HTTP-backed services.
func NewHTTPServiceStrategy(cfg Config, adapter runtime.Adapter, logger logx.Logger) (*HTTPServiceStrategyImpl, error) {
	generic, err := NewGenericStrategy(cfg, adapter, logger)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/health"
	}

	httpChecker, err := health.NewHTTPHealthChecker(health.HealthCheckConfig{
		Type:     health.HTTPHealthCheck,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP health checker: %w", err)
	}

	timeout := cfg.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}

	return &HTTPServiceStrategyImpl{
		GenericStrategyImpl: generic,
		httpChecker:         httpChecker,
		readyTimeout:        timeout,
		logger:              generic.logger,
	}, nil
}

func (h *HTTPServiceStrategyImpl) Name() string { return string(HTTPServiceStrategy) }

// PostRollback polls the health endpoint until it answers or the ready
// timeout elapses, so success is only declared once the application is
// actually serving.
func (h *HTTPServiceStrategyImpl) PostRollback(ctx context.Context, service string) error {
	if pollUntilHealthy(ctx, h.httpChecker, service, h.readyTimeout, h.logger) {
		return nil
	}
	return fmt.Errorf("service %s did not become ready within %v", service, h.readyTimeout)
}

// VerifyHealth re-checks the same endpoint once.
func (h *HTTPServiceStrategyImpl) VerifyHealth(ctx context.Context, service string) bool {
	healthy, err := h.httpChecker.Check(ctx, service)
	if err != nil {
		h.logger.Debug("HTTP health re-check for %s errored: %v", service, err)
		return false
	}
	return healthy
}
