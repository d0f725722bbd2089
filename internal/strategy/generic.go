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

// GenericStrategyImpl is the default strategy: no hooks, a plain
// stop/restore/start rollback and container-state health verification with a
// short bounded timeout.
type GenericStrategyImpl struct {
	adapter       runtime.Adapter
	checker       health.HealthChecker
	verifyTimeout time.Duration
	logger        logx.Logger
}

var _ RollbackStrategy = (*GenericStrategyImpl)(nil)

// NewGenericStrategy creates the default rollback strategy.
func NewGenericStrategy(cfg Config, adapter runtime.Adapter, logger logx.Logger) (*GenericStrategyImpl, error) {
	if adapter == nil {
		return nil, fmt.Errorf("runtime adapter is required")
	}
	if logger == nil {
		logger = logx.NewDefaultLogger()
	}

	checker, err := health.NewDockerHealthChecker(health.HealthCheckConfig{Type: health.DockerHealthCheck}, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker health checker: %w", err)
	}

	timeout := cfg.VerifyTimeout
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}

	return &GenericStrategyImpl{
		adapter:       adapter,
		checker:       checker,
		verifyTimeout: timeout,
		logger:        logger,
	}, nil
}

func (g *GenericStrategyImpl) Name() string { return string(GenericStrategy) }

// PreRollback is a no-op for generic services.
func (g *GenericStrategyImpl) PreRollback(ctx context.Context, service string) error {
	return nil
}

// Rollback stops the container, restores its image reference and starts it.
func (g *GenericStrategyImpl) Rollback(ctx context.Context, service string, imageRef string) error {
	if err := g.adapter.Stop(ctx, service); err != nil {
		return fmt.Errorf("failed to stop %s: %w", service, err)
	}
	if err := g.adapter.SetImage(ctx, service, imageRef); err != nil {
		return fmt.Errorf("failed to restore image for %s: %w", service, err)
	}
	if err := g.adapter.Start(ctx, service); err != nil {
		return fmt.Errorf("failed to start %s: %w", service, err)
	}
	return nil
}

// PostRollback is a no-op for generic services.
func (g *GenericStrategyImpl) PostRollback(ctx context.Context, service string) error {
	return nil
}

// VerifyHealth polls the container state until it reports running or the
// verify timeout elapses. Timeout means unhealthy, never an error.
func (g *GenericStrategyImpl) VerifyHealth(ctx context.Context, service string) bool {
	return pollUntilHealthy(ctx, g.checker, service, g.verifyTimeout, g.logger)
}

// pollUntilHealthy drives a health checker until it reports healthy or the
// timeout elapses. Check errors count as unhealthy polls, not failures.
func pollUntilHealthy(ctx context.Context, checker health.HealthChecker, service string, timeout time.Duration, logger logx.Logger) bool {
	deadline := time.Now().Add(timeout)
	for {
		healthy, err := checker.Check(ctx, service)
		if err != nil {
			logger.Debug("Health check for %s errored: %v", service, err)
		}
		if healthy {
			return true
		}
		if time.Now().After(deadline) {
			logger.Warn("Health verification for %s timed out after %v", service, timeout)
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(DefaultPollInterval):
		}
	}
}
