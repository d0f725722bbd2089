/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package strategy

import (
	"context"
	"fmt"
	"time"
)

// RollbackStrategy defines the per-service hook set driven during a restore.
// Services with special needs (flush-before-stop, wait-for-ready, reload
// instead of restart) override the generic behavior through these hooks.
type RollbackStrategy interface {
	// Name returns the strategy's kind name.
	Name() string

	// PreRollback runs before the service is stopped, e.g. to flush
	// in-flight data to disk.
	PreRollback(ctx context.Context, service string) error

	// Rollback performs a standalone single-service rollback: stop the
	// container, restore its image reference, start it again.
	Rollback(ctx context.Context, service string, imageRef string) error

	// PostRollback runs after the service has been started again, e.g. to
	// wait for readiness or trigger a config reload.
	PostRollback(ctx context.Context, service string) error

	// VerifyHealth reports whether the service is healthy after the
	// rollback. It returns false on timeout rather than raising.
	VerifyHealth(ctx context.Context, service string) bool
}

// StrategyType represents the supported rollback strategy kinds
type StrategyType string

// Supported rollback strategy kinds
const (
	GenericStrategy       StrategyType = "generic"
	StatefulCacheStrategy StrategyType = "stateful-cache"
	HTTPServiceStrategy   StrategyType = "http"
	ConfigReloadStrategy  StrategyType = "config-reload"
)

// ValidStrategyTypes returns a slice of all valid strategy kinds
func ValidStrategyTypes() []StrategyType {
	return []StrategyType{
		GenericStrategy,
		StatefulCacheStrategy,
		HTTPServiceStrategy,
		ConfigReloadStrategy,
	}
}

// IsValidStrategyType checks if a given strategy kind is valid
func IsValidStrategyType(strategyType string) bool {
	for _, validType := range ValidStrategyTypes() {
		if string(validType) == strategyType {
			return true
		}
	}
	return false
}

// Default hook timeouts. Generic verification is short because it only waits
// for the container state to settle; HTTP readiness polls longer because
// applications take time to come up.
const (
	DefaultVerifyTimeout = 10 * time.Second
	DefaultReadyTimeout  = 30 * time.Second
	DefaultPollInterval  = 500 * time.Millisecond
)

// Config carries the per-service-kind settings a strategy needs.
type Config struct {
	// Kind selects the strategy variant. Unknown kinds fall back to generic.
	Kind StrategyType `mapstructure:"kind"`

	// Host, Port and Endpoint locate the health endpoint for HTTP services.
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Endpoint string `mapstructure:"endpoint"`

	// PersistCommand is the flush command for stateful caches,
	// e.g. "redis-cli SAVE".
	PersistCommand string `mapstructure:"persist_command"`

	// ReloadSignal is the signal sent by the config-reload variant,
	// e.g. "SIGHUP".
	ReloadSignal string `mapstructure:"reload_signal"`

	// VerifyTimeout bounds VerifyHealth; zero means the variant default.
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`

	// ReadyTimeout bounds HTTP readiness polling in PostRollback; zero
	// means the variant default.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
}

// Validate checks the strategy configuration for invalid settings. An empty
// or unknown Kind is allowed; the factory falls back to generic for those.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.VerifyTimeout < 0 {
		return fmt.Errorf("verify_timeout must not be negative")
	}
	if c.ReadyTimeout < 0 {
		return fmt.Errorf("ready_timeout must not be negative")
	}
	if c.Kind == HTTPServiceStrategy && c.Port == 0 {
		return fmt.Errorf("http strategy requires a port")
	}
	return nil
}
