package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

const EXECUTION_COLUMNS = ` id, external_id, workflow_id, client_id, status, current_step_id,
		       started_at, last_step_at, completed_at, data, processor_id, modified `

type ExecutionRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewExecutionRepository(db *sql.DB, clock core.Clock) *ExecutionRepository {
	return &ExecutionRepository{db: db, clock: clock}
}

func scanExecution(row interface{ Scan(...interface{}) error }) (*domain.WorkflowExecution, error) {
	var ex domain.WorkflowExecution
	err := row.Scan(
		&ex.ID,
		&ex.ExternalID,
		&ex.WorkflowID,
		&ex.ClientID,
		&ex.Status,
		&ex.CurrentStepID,
		&ex.StartedAt,
		&ex.LastStepAt,
		&ex.CompletedAt,
		&ex.Data,
		&ex.ProcessorID,
		&ex.Modified,
	)
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

func (r *ExecutionRepository) FindByID(id int64) (*domain.WorkflowExecution, error) {
	query := `
		SELECT ` + EXECUTION_COLUMNS + `
		FROM workflow_executions WHERE id = ` + placeholder(1) + `
	`
	return scanExecution(r.db.QueryRow(query, id))
}

func (r *ExecutionRepository) queryExecutions(query string, args ...interface{}) (*[]domain.WorkflowExecution, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executions []domain.WorkflowExecution
	for rows.Next() {
		ex, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *ex)
	}
	return &executions, nil
}

// FindProcessable returns active, unclaimed executions for a scheduler tick,
// oldest activity first so starved executions surface ahead of fresh ones.
func (r *ExecutionRepository) FindProcessable(limit int) (*[]domain.WorkflowExecution, error) {
	query := `
		SELECT ` + EXECUTION_COLUMNS + `
		FROM workflow_executions
		WHERE status = '` + models.ExecutionActive + `'
		  AND processor_id IS NULL
		ORDER BY last_step_at ASC
		LIMIT ` + placeholder(1) + `
	`
	return r.queryExecutions(query, limit)
}

func (r *ExecutionRepository) FindActiveByClient(clientID int64) (*[]domain.WorkflowExecution, error) {
	query := `
		SELECT ` + EXECUTION_COLUMNS + `
		FROM workflow_executions
		WHERE status = '` + models.ExecutionActive + `' AND client_id = ` + placeholder(1) + `
	`
	return r.queryExecutions(query, clientID)
}

// FindActiveByWorkflowAndClient is the duplicate-start guard.
func (r *ExecutionRepository) FindActiveByWorkflowAndClient(workflowID int64, clientID int64) (*domain.WorkflowExecution, error) {
	query := `
		SELECT ` + EXECUTION_COLUMNS + `
		FROM workflow_executions
		WHERE workflow_id = ` + placeholder(1) + ` AND client_id = ` + placeholder(2) + `
		  AND status = '` + models.ExecutionActive + `'
		LIMIT 1
	`
	return scanExecution(r.db.QueryRow(query, workflowID, clientID))
}

func (r *ExecutionRepository) SearchByTrainer(trainerID int64, status string) (*[]domain.WorkflowExecution, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT e.id, e.external_id, e.workflow_id, e.client_id, e.status, e.current_step_id,
		       e.started_at, e.last_step_at, e.completed_at, e.data, e.processor_id, e.modified
		FROM workflow_executions e
		JOIN workflows w ON w.id = e.workflow_id
		WHERE w.trainer_id = ` + placeholder(1))
	args := []interface{}{trainerID}
	if status != "" {
		args = append(args, status)
		sb.WriteString(` AND e.status = ` + placeholder(len(args)))
	}
	sb.WriteString(` ORDER BY e.started_at DESC`)
	return r.queryExecutions(sb.String(), args...)
}

func (r *ExecutionRepository) Save(ex *domain.WorkflowExecution) (int64, error) {
	vals := []interface{}{ex.ExternalID, ex.WorkflowID, ex.ClientID, ex.Status, ex.CurrentStepID,
		formatDateInDatabase(ex.StartedAt), formatDateInDatabaseNull(ex.LastStepAt),
		formatDateInDatabaseNull(ex.CompletedAt), ex.Data, ex.ProcessorID,
		formatDateInDatabase(ex.Modified)}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflow_executions (
		external_id, workflow_id, client_id, status, current_step_id,
		started_at, last_step_at, completed_at, data, processor_id, modified
	) VALUES (` + strings.Join(pps, ", ") + `)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(query, vals...).Scan(&ex.ID)
	} else {
		res, e := r.db.Exec(base, vals...)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				ex.ID = id
			}
		}
	}
	return ex.ID, err
}

// Claim takes the processing lease on an execution. The conditional on
// modified plus the null processor_id makes this a compare-and-set: of two
// racing processors exactly one sees rowsAffected == 1.
func (r *ExecutionRepository) Claim(id int64, processorID int64, modified time.Time) bool {
	query := `
		UPDATE workflow_executions
		SET processor_id = ` + placeholder(1) + `, modified = ` + nowFunc(r.clock) + `
		WHERE id = ` + placeholder(2) + ` AND modified = ` + placeholder(3) + `
		  AND status = '` + models.ExecutionActive + `' AND processor_id IS NULL
	`
	result, err := r.db.Exec(query, processorID, id, formatDateInDatabase(modified))
	if err != nil {
		slog.Error("Failed to claim execution", "error", err, "id", id, "processorId", processorID)
		return false
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return rowsAffected == 1
}

// ReleaseClaim gives the execution back without any state change, used when
// a claimed execution turns out not to be due yet.
func (r *ExecutionRepository) ReleaseClaim(id int64) error {
	query := `
		UPDATE workflow_executions
		SET processor_id = NULL, modified = ` + nowFunc(r.clock) + `
		WHERE id = ` + placeholder(1) + `
	`
	_, err := r.db.Exec(query, id)
	return err
}

// MarkRepeated records a repeat occurrence: the step stays current, the
// activity timestamp and repeat-counter data move, and the claim is released
// in the same statement.
func (r *ExecutionRepository) MarkRepeated(id int64, data string) error {
	query := `
		UPDATE workflow_executions
		SET last_step_at = ` + nowFunc(r.clock) + `, data = ` + placeholder(1) + `,
		    processor_id = NULL, modified = ` + nowFunc(r.clock) + `
		WHERE id = ` + placeholder(2) + `
	`
	_, err := r.db.Exec(query, data, id)
	return err
}

// Advance moves the execution to the next step and releases the claim.
func (r *ExecutionRepository) Advance(id int64, nextStepID int64) error {
	query := `
		UPDATE workflow_executions
		SET current_step_id = ` + placeholder(1) + `, last_step_at = ` + nowFunc(r.clock) + `,
		    processor_id = NULL, modified = ` + nowFunc(r.clock) + `
		WHERE id = ` + placeholder(2) + `
	`
	_, err := r.db.Exec(query, nextStepID, id)
	return err
}

// Complete terminalizes the execution. Status, completion timestamp and claim
// release land in one statement so there is no observable window where the
// execution has run out of steps but is still active.
func (r *ExecutionRepository) Complete(id int64) error {
	query := `
		UPDATE workflow_executions
		SET status = '` + models.ExecutionCompleted + `', completed_at = ` + nowFunc(r.clock) + `,
		    processor_id = NULL, modified = ` + nowFunc(r.clock) + `
		WHERE id = ` + placeholder(1) + ` AND status = '` + models.ExecutionActive + `'
	`
	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected != 1 {
		return fmt.Errorf("execution %d was not active, completion not applied", id)
	}
	return nil
}

// UpdateStatus serves the API's pause/resume/cancel transitions.
func (r *ExecutionRepository) UpdateStatus(id int64, status string) error {
	var query string
	if status == models.ExecutionCompleted {
		query = `
		UPDATE workflow_executions
		SET status = ` + placeholder(1) + `, completed_at = ` + nowFunc(r.clock) + `, modified = ` + nowFunc(r.clock) + `
		WHERE id = ` + placeholder(2) + `
	`
	} else {
		query = `
		UPDATE workflow_executions
		SET status = ` + placeholder(1) + `, modified = ` + nowFunc(r.clock) + `
		WHERE id = ` + placeholder(2) + `
	`
	}
	_, err := r.db.Exec(query, status, id)
	return err
}

// FindStaleClaims returns executions whose claiming processor has not
// heartbeated since the cutoff. These are crashed mid-process and need their
// lease cleared.
func (r *ExecutionRepository) FindStaleClaims(repairAfterMinutes int, limit int) (*[]domain.WorkflowExecution, error) {
	cutoff := r.clock.Now().UTC().Add(-time.Duration(repairAfterMinutes) * time.Minute)
	query := `
		SELECT ` + EXECUTION_COLUMNS + `
		FROM workflow_executions
		WHERE processor_id IS NOT NULL
		  AND modified < ` + placeholder(1) + `
		  AND processor_id NOT IN (
		      SELECT id
		      FROM processors
		      WHERE last_active > ` + placeholder(2) + `
		  )
		ORDER BY modified ASC
		LIMIT ` + placeholder(3) + `
	`
	return r.queryExecutions(query, formatDateInDatabase(cutoff), formatDateInDatabase(cutoff), limit)
}
