package history

import (
	"fmt"
	"time"
)

// Collector records rollback executions into the history database. It is an
// audit trail only: recording failures are surfaced as errors for the caller
// to log, and must never fail the rollback that triggered them.
type Collector struct {
	dao       *DAO
	retention RetentionConfig
}

// NewCollector opens (or creates) the history database at dbPath
func NewCollector(dbPath string, retention RetentionConfig) (*Collector, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}

	return &Collector{
		dao:       NewDAO(db),
		retention: retention,
	}, nil
}

// Close closes the underlying database
func (c *Collector) Close() error {
	return c.dao.db.Close()
}

// RecordExecution persists one completed rollback attempt with its
// per-service outcomes, then applies retention pruning.
func (c *Collector) RecordExecution(pointID, description string, dryRun, success bool,
	duration time.Duration, outcomes []ServiceOutcome) error {

	id, err := c.dao.InsertExecutionStart(pointID, description, dryRun)
	if err != nil {
		return err
	}
	if err := c.dao.FinishExecution(id, success, duration); err != nil {
		return err
	}
	for _, outcome := range outcomes {
		if err := c.dao.InsertServiceOutcome(id, outcome); err != nil {
			return err
		}
	}

	return c.dao.Prune(c.retention)
}

// RecentExecutions returns the newest executions for display
func (c *Collector) RecentExecutions(limit int) ([]Execution, error) {
	return c.dao.GetExecutions(limit)
}

// ExecutionOutcomes returns the per-service results for one execution
func (c *Collector) ExecutionOutcomes(executionID int64) ([]ServiceOutcome, error) {
	return c.dao.GetServiceOutcomes(executionID)
}
