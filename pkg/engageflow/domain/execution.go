package domain

import (
	"database/sql"
	"time"
)

// WorkflowExecution is one running instance of a workflow bound to one client.
// ProcessorID together with Modified implements the processing claim: a row
// with a non-null processor_id is owned by that processor until released.
type WorkflowExecution struct {
	ID            int64
	ExternalID    string
	WorkflowID    int64
	ClientID      int64
	Status        string
	CurrentStepID sql.NullInt64
	StartedAt     time.Time
	LastStepAt    sql.NullTime
	CompletedAt   sql.NullTime
	Data          sql.NullString
	ProcessorID   sql.NullInt64
	Modified      time.Time
}

// ExecutionAction is one audit row for an execution: a dispatch outcome, a
// step transition, a claim conflict or a repair.
type ExecutionAction struct {
	ID          int64
	ExecutionID int64
	StepID      sql.NullInt64
	ProcessorID int64
	Type        string
	Name        string
	Text        string
	DateTime    time.Time
}
