package domain

import (
	"database/sql"
	"time"
)

type Form struct {
	ID        int64
	TrainerID int64
	Name      string
	Created   time.Time
}

type FormSubmission struct {
	ID          int64
	FormID      int64
	ClientID    int64
	SubmittedAt time.Time
}

type Subscription struct {
	ID         int64
	ClientID   int64
	PackageID  sql.NullInt64
	EndDate    sql.NullTime
	IsCanceled bool
	IsOnHold   bool
}
