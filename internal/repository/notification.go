package repository

import (
	"database/sql"
	"strings"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
)

type NotificationRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewNotificationRepository(db *sql.DB, clock core.Clock) *NotificationRepository {
	return &NotificationRepository{db: db, clock: clock}
}

func (r *NotificationRepository) insertReturningID(base string, vals []interface{}, dest *int64) error {
	if supportsReturning() {
		return r.db.QueryRow(base+" RETURNING id", vals...).Scan(dest)
	}
	res, err := r.db.Exec(base, vals...)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	*dest = id
	return nil
}

func (r *NotificationRepository) Save(n *domain.Notification) (int64, error) {
	vals := []interface{}{n.TrainerID, n.Title, n.Message, n.Type, formatDateInDatabase(n.Created)}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO notifications (trainer_id, title, message, type, created)
		VALUES (` + strings.Join(pps, ", ") + `)`
	err := r.insertReturningID(base, vals, &n.ID)
	return n.ID, err
}

func (r *NotificationRepository) SaveRecipient(rec *domain.NotificationRecipient) (int64, error) {
	vals := []interface{}{rec.NotificationID, rec.ClientID, rec.Status, formatDateInDatabase(rec.Created)}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	base := `INSERT INTO notification_recipients (notification_id, client_id, status, created)
		VALUES (` + strings.Join(pps, ", ") + `)`
	err := r.insertReturningID(base, vals, &rec.ID)
	return rec.ID, err
}

// FindByTrainer lists a trainer's notifications, newest first.
func (r *NotificationRepository) FindByTrainer(trainerID int64, limit int) (*[]domain.Notification, error) {
	query := `
		SELECT id, trainer_id, title, message, type, created
		FROM notifications
		WHERE trainer_id = ` + placeholder(1) + `
		ORDER BY id DESC
		LIMIT ` + placeholder(2) + `
	`
	rows, err := r.db.Query(query, trainerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.TrainerID, &n.Title, &n.Message, &n.Type, &n.Created); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return &notifications, nil
}
