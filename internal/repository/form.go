package repository

import (
	"database/sql"
	"strings"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
)

type FormRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewFormRepository(db *sql.DB, clock core.Clock) *FormRepository {
	return &FormRepository{db: db, clock: clock}
}

func (r *FormRepository) FindByID(id int64) (*domain.Form, error) {
	query := `
		SELECT id, trainer_id, name, created
		FROM forms WHERE id = ` + placeholder(1) + `
	`
	var f domain.Form
	err := r.db.QueryRow(query, id).Scan(&f.ID, &f.TrainerID, &f.Name, &f.Created)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// LatestSubmission returns the client's most recent submission of the form,
// or sql.ErrNoRows when the client has never submitted it.
func (r *FormRepository) LatestSubmission(clientID int64, formID int64) (*domain.FormSubmission, error) {
	query := `
		SELECT id, form_id, client_id, submitted_at
		FROM form_submissions
		WHERE client_id = ` + placeholder(1) + ` AND form_id = ` + placeholder(2) + `
		ORDER BY submitted_at DESC
		LIMIT 1
	`
	var s domain.FormSubmission
	err := r.db.QueryRow(query, clientID, formID).Scan(&s.ID, &s.FormID, &s.ClientID, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *FormRepository) SaveSubmission(s *domain.FormSubmission) (int64, error) {
	vals := []interface{}{s.FormID, s.ClientID, formatDateInDatabase(s.SubmittedAt)}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO form_submissions (form_id, client_id, submitted_at)
		VALUES (` + strings.Join(pps, ", ") + `)`
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
