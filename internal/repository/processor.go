package repository

import (
	"database/sql"
	"time"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
)

// ProcessorRepository tracks live engine instances. Heartbeats feed the
// stale-claim repair scan.
type ProcessorRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewProcessorRepository(db *sql.DB, clock core.Clock) *ProcessorRepository {
	return &ProcessorRepository{db: db, clock: clock}
}

func (r *ProcessorRepository) Save(p *domain.Processor) (int64, error) {
	base := `
		INSERT INTO processors (name, started, last_active)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `)`
	var err error
	if supportsReturning() {
		query := base + " RETURNING id"
		err = r.db.QueryRow(query, p.Name, formatDateInDatabase(p.Started), formatDateInDatabase(p.LastActive)).Scan(&p.ID)
	} else {
		res, e := r.db.Exec(base, p.Name, formatDateInDatabase(p.Started), formatDateInDatabase(p.LastActive))
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				p.ID = id
			}
		}
	}
	return p.ID, err
}

func (r *ProcessorRepository) UpdateLastActive(id int64, ts time.Time) error {
	query := `
		UPDATE processors
		SET last_active = ` + placeholder(1) + `
		WHERE id = ` + placeholder(2) + `
	`
	_, err := r.db.Exec(query, formatDateInDatabase(ts), id)
	return err
}

// GetProcessorsByLastActive returns recent processors ordered by last_active desc.
func (r *ProcessorRepository) GetProcessorsByLastActive(limit int) ([]*domain.Processor, error) {
	query := `
		SELECT id, name, started, last_active
		FROM processors
		ORDER BY last_active DESC
		LIMIT ` + placeholder(1) + `
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var processors []*domain.Processor
	for rows.Next() {
		var p domain.Processor
		if err := rows.Scan(&p.ID, &p.Name, &p.Started, &p.LastActive); err != nil {
			return nil, err
		}
		processors = append(processors, &p)
	}
	return processors, nil
}
