package history

import (
	"fmt"
	"time"
)

// RetentionConfig bounds how much rollback history is kept. Pruning runs
// inline after each recorded execution; the CLI process is short-lived so
// there is no background scheduler.
type RetentionConfig struct {
	// Enabled turns pruning on
	Enabled bool

	// MaxAge drops executions older than this (zero disables the age bound)
	MaxAge time.Duration

	// MaxRecords keeps at most this many executions (zero disables the
	// count bound)
	MaxRecords int
}

// DefaultRetentionConfig keeps 90 days and 500 executions
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		Enabled:    true,
		MaxAge:     90 * 24 * time.Hour,
		MaxRecords: 500,
	}
}

// Prune applies the retention bounds to the history database
func (d *DAO) Prune(config RetentionConfig) error {
	if !config.Enabled {
		return nil
	}

	if config.MaxAge > 0 {
		cutoff := time.Now().UTC().Add(-config.MaxAge)
		if _, err := d.db.db.Exec(
			`DELETE FROM service_results WHERE execution_id IN
			 (SELECT id FROM rollback_executions WHERE started_at < ?)`, cutoff); err != nil {
			return fmt.Errorf("failed to prune old service results: %w", err)
		}
		if _, err := d.db.db.Exec(
			`DELETE FROM rollback_executions WHERE started_at < ?`, cutoff); err != nil {
			return fmt.Errorf("failed to prune old executions: %w", err)
		}
	}

	if config.MaxRecords > 0 {
		if _, err := d.db.db.Exec(
			`DELETE FROM service_results WHERE execution_id NOT IN
			 (SELECT id FROM rollback_executions ORDER BY started_at DESC, id DESC LIMIT ?)`,
			config.MaxRecords); err != nil {
			return fmt.Errorf("failed to prune excess service results: %w", err)
		}
		if _, err := d.db.db.Exec(
			`DELETE FROM rollback_executions WHERE id NOT IN
			 (SELECT id FROM rollback_executions ORDER BY started_at DESC, id DESC LIMIT ?)`,
			config.MaxRecords); err != nil {
			return fmt.Errorf("failed to prune excess executions: %w", err)
		}
	}

	return nil
}
