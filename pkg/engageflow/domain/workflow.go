package domain

import "time"
import "database/sql"

type Workflow struct {
	ID          int64
	TrainerID   int64
	Name        string
	Description sql.NullString
	IsActive    bool
	Created     time.Time
	Updated     time.Time
}

type Step struct {
	ID         int64
	WorkflowID int64
	StepOrder  int
	StepType   string
	Config     string
}
