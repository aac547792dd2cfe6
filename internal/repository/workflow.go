package repository

import (
	"database/sql"
	"strings"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
)

const WORKFLOW_COLUMNS = ` id, trainer_id, name, description, is_active, created, updated `

type WorkflowRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewWorkflowRepository(db *sql.DB, clock core.Clock) *WorkflowRepository {
	return &WorkflowRepository{db: db, clock: clock}
}

func scanWorkflow(row interface{ Scan(...interface{}) error }) (*domain.Workflow, error) {
	var wf domain.Workflow
	err := row.Scan(
		&wf.ID,
		&wf.TrainerID,
		&wf.Name,
		&wf.Description,
		&wf.IsActive,
		&wf.Created,
		&wf.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *WorkflowRepository) FindByID(id int64) (*domain.Workflow, error) {
	query := `
		SELECT ` + WORKFLOW_COLUMNS + `
		FROM workflows WHERE id = ` + placeholder(1) + `
	`
	return scanWorkflow(r.db.QueryRow(query, id))
}

func (r *WorkflowRepository) FindByIDForTrainer(id int64, trainerID int64) (*domain.Workflow, error) {
	query := `
		SELECT ` + WORKFLOW_COLUMNS + `
		FROM workflows WHERE id = ` + placeholder(1) + ` AND trainer_id = ` + placeholder(2) + `
	`
	return scanWorkflow(r.db.QueryRow(query, id, trainerID))
}

func (r *WorkflowRepository) FindByTrainer(trainerID int64) (*[]domain.Workflow, error) {
	query := `
		SELECT ` + WORKFLOW_COLUMNS + `
		FROM workflows
		WHERE trainer_id = ` + placeholder(1) + `
		ORDER BY created DESC
	`
	rows, err := r.db.Query(query, trainerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return &workflows, nil
}

func (r *WorkflowRepository) Save(wf *domain.Workflow) (int64, error) {
	vals := []interface{}{wf.TrainerID, wf.Name, wf.Description, wf.IsActive,
		formatDateInDatabase(wf.Created), formatDateInDatabase(wf.Updated)}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO workflows (
		trainer_id, name, description, is_active, created, updated
	) VALUES (` + strings.Join(pps, ", ") + `)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(query, vals...).Scan(&wf.ID)
	} else {
		res, e := r.db.Exec(base, vals...)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				wf.ID = id
			}
		}
	}
	return wf.ID, err
}

func (r *WorkflowRepository) Update(wf *domain.Workflow) error {
	query := `
		UPDATE workflows
		SET name = ` + placeholder(1) + `, description = ` + placeholder(2) + `,
		    is_active = ` + placeholder(3) + `, updated = ` + nowFunc(r.clock) + `
		WHERE id = ` + placeholder(4) + `
	`
	_, err := r.db.Exec(query, wf.Name, wf.Description, wf.IsActive, wf.ID)
	return err
}

func (r *WorkflowRepository) Delete(id int64) error {
	query := `DELETE FROM workflows WHERE id = ` + placeholder(1)
	_, err := r.db.Exec(query, id)
	return err
}
