/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package strategy

import (
	"context"
	"fmt"
	"strings"

	"dosnap/internal/logx"
	"dosnap/internal/runtime"
)

// defaultPersistCommand is the flush command used when none is configured.
// It matches the most common stateful cache in compose deployments.
const defaultPersistCommand = "redis-cli SAVE"

// StatefulCacheStrategyImpl handles in-memory stores with a durability
// command. Before the container is stopped it issues the store's persist
// command so in-flight data survives the restart. This is a best-effort
// flush, not a data rollback: the store's volume is only reverted when the
// rollback point explicitly includes it.
type StatefulCacheStrategyImpl struct {
	*GenericStrategyImpl
	persistCommand []string
	logger         logx.Logger
}

var _ RollbackStrategy = (*StatefulCacheStrategyImpl)(nil)

// NewStatefulCacheStrategy creates a strategy for flush-before-stop services.
func NewStatefulCacheStrategy(cfg Config, adapter runtime.Adapter, logger logx.Logger) (*StatefulCacheStrategyImpl, error) {
	generic, err := NewGenericStrategy(cfg, adapter, logger)
	if err != nil {
		return nil, err
	}

	command := cfg.PersistCommand
	if command == "" {
		command = defaultPersistCommand
	}

	return &StatefulCacheStrategyImpl{
		GenericStrategyImpl: generic,
		persistCommand:      strings.Fields(command),
		logger:              generic.logger,
	}, nil
}

func (s *StatefulCacheStrategyImpl) Name() string { return string(StatefulCacheStrategy) }

// PreRollback issues the persist command inside the running container so the
// store flushes to disk before it is stopped.
func (s *StatefulCacheStrategyImpl) PreRollback(ctx context.Context, service string) error {
	s.logger.Info("Flushing %s with %q before rollback", service, strings.Join(s.persistCommand, " "))
	if err := s.adapter.ExecInService(ctx, service, s.persistCommand); err != nil {
		return fmt.Errorf("persist command failed for %s: %w", service, err)
	}
	return nil
}
