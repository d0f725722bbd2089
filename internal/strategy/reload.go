/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package strategy

import (
	"context"

	"dosnap/internal/logx"
	"dosnap/internal/runtime"
)

const defaultReloadSignal = "SIGHUP"

// ConfigReloadStrategyImpl handles services that can pick up restored
// configuration without a full restart, like a metrics collector. After
// rollback it sends a reload signal; if signalling fails it falls back to a
// hard stop/start so the restored config is always applied.
type ConfigReloadStrategyImpl struct {
	*GenericStrategyImpl
	reloadSignal string
	logger       logx.Logger
}

var _ RollbackStrategy = (*ConfigReloadStrategyImpl)(nil)

// NewConfigReloadStrategy creates a strategy for reload-capable services.
func NewConfigReloadStrategy(cfg Config, adapter runtime.Adapter, logger logx.Logger) (*ConfigReloadStrategyImpl, error) {
	generic, err := NewGenericStrategy(cfg, adapter, logger)
	if err != nil {
		return nil, err
	}

	signal := cfg.ReloadSignal
	if signal == "" {
		signal = defaultReloadSignal
	}

	return &ConfigReloadStrategyImpl{
		GenericStrategyImpl: generic,
		reloadSignal:        signal,
		logger:              generic.logger,
	}, nil
}

func (c *ConfigReloadStrategyImpl) Name() string { return string(ConfigReloadStrategy) }

// PostRollback signals the service to reload its configuration, reducing
// downtime. When the signal cannot be delivered the service is restarted
// instead.
func (c *ConfigReloadStrategyImpl) PostRollback(ctx context.Context, service string) error {
	if err := c.adapter.SignalService(ctx, service, c.reloadSignal); err == nil {
		c.logger.Info("Sent %s to %s for config reload", c.reloadSignal, service)
		return nil
	} else {
		c.logger.Warn("Reload signal failed for %s, falling back to restart: %v", service, err)
	}

	if err := c.adapter.Stop(ctx, service); err != nil {
		return err
	}
	return c.adapter.Start(ctx, service)
}
