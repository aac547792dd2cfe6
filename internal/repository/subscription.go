package repository

import (
	"database/sql"
	"errors"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
)

type SubscriptionRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewSubscriptionRepository(db *sql.DB, clock core.Clock) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, clock: clock}
}

// FindCurrentByClient returns the client's most recently ending,
// non-cancelled subscription, or sql.ErrNoRows.
func (r *SubscriptionRepository) FindCurrentByClient(clientID int64) (*domain.Subscription, error) {
	query := `
		SELECT id, client_id, package_id, end_date, is_canceled, is_on_hold
		FROM subscriptions
		WHERE client_id = ` + placeholder(1) + ` AND is_canceled = ` + boolLiteral(false) + `
		ORDER BY end_date DESC
		LIMIT 1
	`
	var s domain.Subscription
	err := r.db.QueryRow(query, clientID).Scan(&s.ID, &s.ClientID, &s.PackageID, &s.EndDate, &s.IsCanceled, &s.IsOnHold)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// IsActive reports whether the client currently holds a live subscription.
// A missing or ended subscription is not an error, just inactive.
func (r *SubscriptionRepository) IsActive(clientID int64) (bool, error) {
	sub, err := r.FindCurrentByClient(clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if sub.IsOnHold {
		return false, nil
	}
	if !sub.EndDate.Valid {
		return true, nil
	}
	return sub.EndDate.Time.After(r.clock.Now()), nil
}
