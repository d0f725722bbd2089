package history

import (
	"fmt"
	"time"
)

// Execution is one recorded rollback attempt against a rollback point.
type Execution struct {
	ID          int64
	PointID     string
	Description string
	DryRun      bool
	StartedAt   time.Time
	FinishedAt  time.Time
	Success     bool
	Duration    time.Duration
}

// ServiceOutcome is the persisted per-service result of an execution.
type ServiceOutcome struct {
	Service        string
	Succeeded      bool
	HealthVerified bool
	State          string
	Reason         string
}

// DAO (Data Access Object) provides methods to interact with the history database
type DAO struct {
	db *Database
}

// NewDAO creates a new Data Access Object for rollback history
func NewDAO(db *Database) *DAO {
	return &DAO{db: db}
}

// InsertExecutionStart inserts a new execution record and returns its id
func (d *DAO) InsertExecutionStart(pointID, description string, dryRun bool) (int64, error) {
	query := `
	INSERT INTO rollback_executions
	(point_id, description, dry_run, started_at)
	VALUES (?, ?, ?, ?)
	`

	result, err := d.db.db.Exec(query, pointID, description, boolToInt(dryRun), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert execution record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// FinishExecution updates an execution record with its outcome
func (d *DAO) FinishExecution(id int64, success bool, duration time.Duration) error {
	query := `
	UPDATE rollback_executions
	SET finished_at = ?, success = ?, duration = ?
	WHERE id = ?
	`

	_, err := d.db.db.Exec(query, time.Now().UTC(), boolToInt(success), duration.Nanoseconds(), id)
	if err != nil {
		return fmt.Errorf("failed to finish execution record: %w", err)
	}
	return nil
}

// InsertServiceOutcome records one service's result for an execution
func (d *DAO) InsertServiceOutcome(executionID int64, outcome ServiceOutcome) error {
	query := `
	INSERT INTO service_results
	(execution_id, service, succeeded, health_verified, state, reason)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.db.Exec(query, executionID, outcome.Service,
		boolToInt(outcome.Succeeded), boolToInt(outcome.HealthVerified),
		outcome.State, outcome.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert service result: %w", err)
	}
	return nil
}

// GetExecutions returns the most recent executions, newest first
func (d *DAO) GetExecutions(limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT id, point_id, description, dry_run, started_at,
	       COALESCE(finished_at, started_at), success, COALESCE(duration, 0)
	FROM rollback_executions
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`

	rows, err := d.db.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		var e Execution
		var dryRun, success int
		var durationNs int64
		if err := rows.Scan(&e.ID, &e.PointID, &e.Description, &dryRun,
			&e.StartedAt, &e.FinishedAt, &success, &durationNs); err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}
		e.DryRun = dryRun != 0
		e.Success = success != 0
		e.Duration = time.Duration(durationNs)
		executions = append(executions, e)
	}
	return executions, rows.Err()
}

// GetServiceOutcomes returns the per-service results for an execution
func (d *DAO) GetServiceOutcomes(executionID int64) ([]ServiceOutcome, error) {
	query := `
	SELECT service, succeeded, health_verified, COALESCE(state, ''), COALESCE(reason, '')
	FROM service_results
	WHERE execution_id = ?
	ORDER BY id
	`

	rows, err := d.db.db.Query(query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query service results: %w", err)
	}
	defer rows.Close()

	var outcomes []ServiceOutcome
	for rows.Next() {
		var o ServiceOutcome
		var succeeded, verified int
		if err := rows.Scan(&o.Service, &succeeded, &verified, &o.State, &o.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan service result row: %w", err)
		}
		o.Succeeded = succeeded != 0
		o.HealthVerified = verified != 0
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
