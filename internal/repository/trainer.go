package repository

import (
	"database/sql"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
)

type TrainerRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewTrainerRepository(db *sql.DB, clock core.Clock) *TrainerRepository {
	return &TrainerRepository{db: db, clock: clock}
}

func (r *TrainerRepository) FindByID(id int64) (*domain.Trainer, error) {
	query := `
		SELECT id, name, api_key_hash, created
		FROM trainers WHERE id = ` + placeholder(1) + `
	`
	var t domain.Trainer
	err := r.db.QueryRow(query, id).Scan(&t.ID, &t.Name, &t.APIKeyHash, &t.Created)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type ClientRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewClientRepository(db *sql.DB, clock core.Clock) *ClientRepository {
	return &ClientRepository{db: db, clock: clock}
}

func (r *ClientRepository) FindByID(id int64) (*domain.Client, error) {
	query := `
		SELECT id, trainer_id, full_name, email
		FROM clients WHERE id = ` + placeholder(1) + `
	`
	var c domain.Client
	err := r.db.QueryRow(query, id).Scan(&c.ID, &c.TrainerID, &c.FullName, &c.Email)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepository) queryIDs(query string, args ...interface{}) ([]int64, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *ClientRepository) FindIDsByTrainer(trainerID int64) ([]int64, error) {
	query := `SELECT id FROM clients WHERE trainer_id = ` + placeholder(1)
	return r.queryIDs(query, trainerID)
}

// FindIDsBySubscribedPackages returns clients holding a live subscription to
// any of the given packages.
func (r *ClientRepository) FindIDsBySubscribedPackages(packageIDs []int64) ([]int64, error) {
	if len(packageIDs) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(packageIDs))
	pps := make([]string, 0, len(packageIDs))
	for i, id := range packageIDs {
		args = append(args, id)
		pps = append(pps, placeholder(i+1))
	}
	query := `
		SELECT DISTINCT client_id FROM subscriptions
		WHERE package_id IN (` + join(pps) + `)
		  AND is_canceled = ` + boolLiteral(false) + ` AND is_on_hold = ` + boolLiteral(false) + `
	`
	return r.queryIDs(query, args...)
}
