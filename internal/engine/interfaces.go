package engine

import (
	"context"
	"time"

	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

// ExecutionRepo is the execution store surface the engine depends on,
// matching repository.ExecutionRepository.
type ExecutionRepo interface {
	FindByID(id int64) (*domain.WorkflowExecution, error)
	FindProcessable(limit int) (*[]domain.WorkflowExecution, error)
	FindActiveByClient(clientID int64) (*[]domain.WorkflowExecution, error)
	Claim(id int64, processorID int64, modified time.Time) bool
	ReleaseClaim(id int64) error
	MarkRepeated(id int64, data string) error
	Advance(id int64, nextStepID int64) error
	Complete(id int64) error
	FindStaleClaims(repairAfterMinutes int, limit int) (*[]domain.WorkflowExecution, error)
}

// StepRepo resolves workflow steps and step ordering.
type StepRepo interface {
	FindByID(id int64) (*domain.Step, error)
	FindNextByOrder(workflowID int64, afterOrder int) (*domain.Step, error)
}

// ExecutionActionRepo persists the audit trail.
type ExecutionActionRepo interface {
	Save(a *domain.ExecutionAction) (int64, error)
}

// ProcessorRepo registers engine instances and their heartbeats.
type ProcessorRepo interface {
	Save(p *domain.Processor) (int64, error)
	UpdateLastActive(id int64, ts time.Time) error
	GetProcessorsByLastActive(limit int) ([]*domain.Processor, error)
}

// NotificationRepo reads the notifications written by step dispatch.
type NotificationRepo interface {
	FindByTrainer(trainerID int64, limit int) (*[]domain.Notification, error)
}

// TrainerRepo resolves trainer accounts for API key auth.
type TrainerRepo interface {
	FindByID(id int64) (*domain.Trainer, error)
}

// ClientRepo resolves the client a side effect is addressed to.
type ClientRepo interface {
	FindByID(id int64) (*domain.Client, error)
}

// FormRepo resolves forms and form submissions for form steps and
// after_form_submission gating.
type FormRepo interface {
	FindByID(id int64) (*domain.Form, error)
	LatestSubmission(clientID int64, formID int64) (*domain.FormSubmission, error)
}

// SubscriptionRepo answers subscription questions for repeat policies and
// before_subscription_end gating.
type SubscriptionRepo interface {
	FindCurrentByClient(clientID int64) (*domain.Subscription, error)
	IsActive(clientID int64) (bool, error)
}

// Processor is the per-execution state machine driver the scheduler fans
// out to.
type Processor interface {
	Process(ctx context.Context, executionID int64) (models.ProcessResult, error)
}
