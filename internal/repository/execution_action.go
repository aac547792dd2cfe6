package repository

import (
	"database/sql"
	"log/slog"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
)

// ExecutionActionRepository persists the audit trail of engine activity per
// execution: dispatch outcomes, transitions, claim conflicts, repairs.
type ExecutionActionRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewExecutionActionRepository(db *sql.DB, clock core.Clock) *ExecutionActionRepository {
	return &ExecutionActionRepository{db: db, clock: clock}
}

func (r *ExecutionActionRepository) Save(a *domain.ExecutionAction) (int64, error) {
	base := `
		INSERT INTO execution_actions (
			execution_id, step_id, processor_id, type, name, text, date_time
		) VALUES (
			` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `, ` + placeholder(6) + `, ` + placeholder(7) + `
		)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(
			query,
			a.ExecutionID,
			a.StepID,
			a.ProcessorID,
			a.Type,
			a.Name,
			a.Text,
			formatDateInDatabase(a.DateTime),
		).Scan(&a.ID)
	} else {
		res, e := r.db.Exec(base,
			a.ExecutionID,
			a.StepID,
			a.ProcessorID,
			a.Type,
			a.Name,
			a.Text,
			formatDateInDatabase(a.DateTime),
		)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				a.ID = id
			}
		}
	}

	if err != nil {
		slog.Error("Failed to save execution action", "error", err)
	}

	return a.ID, err
}

// FindAllByExecutionID returns the actions for an execution, newest first.
func (r *ExecutionActionRepository) FindAllByExecutionID(executionID int64) (*[]domain.ExecutionAction, error) {
	query := `
		SELECT id, execution_id, step_id, processor_id, type, name, text, date_time
		FROM execution_actions
		WHERE execution_id = ` + placeholder(1) + `
		ORDER BY id DESC
	`
	rows, err := r.db.Query(query, executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []domain.ExecutionAction
	for rows.Next() {
		var a domain.ExecutionAction
		if err := rows.Scan(
			&a.ID,
			&a.ExecutionID,
			&a.StepID,
			&a.ProcessorID,
			&a.Type,
			&a.Name,
			&a.Text,
			&a.DateTime,
		); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return &actions, nil
}
