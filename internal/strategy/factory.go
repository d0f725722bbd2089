/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package strategy

import (
	"dosnap/internal/logx"
	"dosnap/internal/runtime"
)

// New creates the strategy for a service kind. Unknown kinds fall back to
// the generic strategy rather than failing, so the tool stays usable as new
// services are added without code changes.
func New(cfg Config, adapter runtime.Adapter, logger logx.Logger) (RollbackStrategy, error) {
	if logger == nil {
		logger = logx.NewDefaultLogger()
	}

	switch cfg.Kind {
	case StatefulCacheStrategy:
		return NewStatefulCacheStrategy(cfg, adapter, logger)
	case HTTPServiceStrategy:
		return NewHTTPServiceStrategy(cfg, adapter, logger)
	case ConfigReloadStrategy:
		return NewConfigReloadStrategy(cfg, adapter, logger)
	case GenericStrategy, "":
		return NewGenericStrategy(cfg, adapter, logger)
	default:
		logger.Warn("Unknown service strategy kind %q, using generic", cfg.Kind)
		return NewGenericStrategy(cfg, adapter, logger)
	}
}
