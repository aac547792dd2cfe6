package repository

import (
	"database/sql"
	"strings"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
)

const STEP_COLUMNS = ` id, workflow_id, step_order, step_type, config `

type StepRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewStepRepository(db *sql.DB, clock core.Clock) *StepRepository {
	return &StepRepository{db: db, clock: clock}
}

func (r *StepRepository) FindByID(id int64) (*domain.Step, error) {
	query := `
		SELECT ` + STEP_COLUMNS + `
		FROM workflow_steps WHERE id = ` + placeholder(1) + `
	`
	var s domain.Step
	err := r.db.QueryRow(query, id).Scan(&s.ID, &s.WorkflowID, &s.StepOrder, &s.StepType, &s.Config)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByWorkflowID returns the workflow's steps in step_order.
func (r *StepRepository) FindByWorkflowID(workflowID int64) (*[]domain.Step, error) {
	query := `
		SELECT ` + STEP_COLUMNS + `
		FROM workflow_steps
		WHERE workflow_id = ` + placeholder(1) + `
		ORDER BY step_order ASC
	`
	rows, err := r.db.Query(query, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []domain.Step
	for rows.Next() {
		var s domain.Step
		if err := rows.Scan(&s.ID, &s.WorkflowID, &s.StepOrder, &s.StepType, &s.Config); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return &steps, nil
}

// FindNextByOrder returns the first step of the workflow with an order
// strictly greater than the given one, or sql.ErrNoRows when the workflow
// has no further steps.
func (r *StepRepository) FindNextByOrder(workflowID int64, afterOrder int) (*domain.Step, error) {
	query := `
		SELECT ` + STEP_COLUMNS + `
		FROM workflow_steps
		WHERE workflow_id = ` + placeholder(1) + ` AND step_order > ` + placeholder(2) + `
		ORDER BY step_order ASC
		LIMIT 1
	`
	var s domain.Step
	err := r.db.QueryRow(query, workflowID, afterOrder).Scan(&s.ID, &s.WorkflowID, &s.StepOrder, &s.StepType, &s.Config)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StepRepository) Save(s *domain.Step) (int64, error) {
	vals := []interface{}{s.WorkflowID, s.StepOrder, s.StepType, s.Config}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflow_steps (
		workflow_id, step_order, step_type, config
	) VALUES (` + strings.Join(pps, ", ") + `)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(query, vals...).Scan(&s.ID)
	} else {
		res, e := r.db.Exec(base, vals...)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				s.ID = id
			}
		}
	}
	return s.ID, err
}

// DeleteByWorkflowID removes the step rows of a workflow. Editing a workflow
// replaces its steps; an in-flight execution still pointing at a removed step
// is skipped with a not-found at process time rather than advanced.
func (r *StepRepository) DeleteByWorkflowID(workflowID int64) error {
	query := `DELETE FROM workflow_steps WHERE workflow_id = ` + placeholder(1)
	_, err := r.db.Exec(query, workflowID)
	return err
}
