package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

// ExecutionProcessor drives the step state machine for one execution at a
// time. Every Process call claims the execution first and commits exactly one
// state transition (repeat, advance or complete) that also releases the
// claim, so a timer tick and an external trigger racing on the same
// execution cannot double-apply a step.
type ExecutionProcessor struct {
	executions  ExecutionRepo
	steps       StepRepo
	actions     ExecutionActionRepo
	executor    *StepExecutor
	repeats     *RepeatEvaluator
	timing      *TimingGate
	processorID int64
	clock       core.Clock
}

func NewExecutionProcessor(executions ExecutionRepo, steps StepRepo, actions ExecutionActionRepo,
	executor *StepExecutor, repeats *RepeatEvaluator, timing *TimingGate,
	processorID int64, clock core.Clock) *ExecutionProcessor {
	return &ExecutionProcessor{
		executions:  executions,
		steps:       steps,
		actions:     actions,
		executor:    executor,
		repeats:     repeats,
		timing:      timing,
		processorID: processorID,
		clock:       clock,
	}
}

func (p *ExecutionProcessor) Process(ctx context.Context, executionID int64) (models.ProcessResult, error) {
	exec, err := p.executions.FindByID(executionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ResultNoop, fmt.Errorf("execution %d: %w", executionID, ErrNotFound)
		}
		return models.ResultNoop, err
	}
	if exec.Status != models.ExecutionActive {
		return models.ResultNoop, ErrAlreadyTerminal
	}

	if !p.executions.Claim(exec.ID, p.processorID, exec.Modified) {
		_, _ = p.actions.Save(&domain.ExecutionAction{
			ExecutionID: exec.ID, ProcessorID: p.processorID,
			Type: "CLAIM_FAILED", Name: "CLAIM_FAILED",
			Text: "execution already claimed by another processor", DateTime: p.clock.Now(),
		})
		return models.ResultNoop, ErrClaimConflict
	}

	// The claim is held from here; every path below must release it, which
	// the repository mutations do as part of their single UPDATE.

	if !exec.CurrentStepID.Valid {
		return p.complete(ctx, exec, nil)
	}

	step, err := p.steps.FindByID(exec.CurrentStepID.Int64)
	if err != nil {
		releaseErr := p.executions.ReleaseClaim(exec.ID)
		if releaseErr != nil {
			slog.ErrorContext(ctx, "Failed to release claim", "execution_id", exec.ID, "error", releaseErr)
		}
		if errors.Is(err, sql.ErrNoRows) {
			slog.WarnContext(ctx, "Current step no longer exists", "execution_id", exec.ID, "step_id", exec.CurrentStepID.Int64)
			return models.ResultNoop, fmt.Errorf("step %d: %w", exec.CurrentStepID.Int64, ErrNotFound)
		}
		return models.ResultNoop, err
	}

	cfg, err := models.ParseStepConfig(models.StepType(step.StepType), step.Config)
	if err != nil {
		// Loud, and the execution is left exactly where it is: a broken
		// config should be fixed, not skipped past.
		slog.ErrorContext(ctx, "Step config invalid, execution left untouched",
			"execution_id", exec.ID, "step_id", step.ID, "error", err)
		_, _ = p.actions.Save(&domain.ExecutionAction{
			ExecutionID: exec.ID, StepID: sql.NullInt64{Int64: step.ID, Valid: true},
			ProcessorID: p.processorID, Type: "CONFIG_ERROR", Name: step.StepType,
			Text: err.Error(), DateTime: p.clock.Now(),
		})
		if releaseErr := p.executions.ReleaseClaim(exec.ID); releaseErr != nil {
			slog.ErrorContext(ctx, "Failed to release claim", "execution_id", exec.ID, "error", releaseErr)
		}
		return models.ResultNoop, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	due, err := p.due(exec, step, cfg)
	if err != nil {
		if releaseErr := p.executions.ReleaseClaim(exec.ID); releaseErr != nil {
			slog.ErrorContext(ctx, "Failed to release claim", "execution_id", exec.ID, "error", releaseErr)
		}
		return models.ResultNoop, err
	}
	if !due {
		slog.DebugContext(ctx, "Step not due yet", "execution_id", exec.ID, "step_id", step.ID)
		if releaseErr := p.executions.ReleaseClaim(exec.ID); releaseErr != nil {
			slog.ErrorContext(ctx, "Failed to release claim", "execution_id", exec.ID, "error", releaseErr)
		}
		return models.ResultNoop, nil
	}

	p.executor.Execute(ctx, exec, step, cfg)

	repeat, data, err := p.repeats.ShouldRepeat(exec, step.ID, cfg)
	if err != nil {
		if releaseErr := p.executions.ReleaseClaim(exec.ID); releaseErr != nil {
			slog.ErrorContext(ctx, "Failed to release claim", "execution_id", exec.ID, "error", releaseErr)
		}
		return models.ResultNoop, err
	}
	if repeat {
		if err := p.executions.MarkRepeated(exec.ID, data); err != nil {
			return models.ResultNoop, err
		}
		_, _ = p.actions.Save(&domain.ExecutionAction{
			ExecutionID: exec.ID, StepID: sql.NullInt64{Int64: step.ID, Valid: true},
			ProcessorID: p.processorID, Type: "REPEAT", Name: step.StepType,
			Text: fmt.Sprintf("step %d repeating", step.ID), DateTime: p.clock.Now(),
		})
		return models.ResultRepeated, nil
	}

	next, err := p.steps.FindNextByOrder(step.WorkflowID, step.StepOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p.complete(ctx, exec, step)
		}
		if releaseErr := p.executions.ReleaseClaim(exec.ID); releaseErr != nil {
			slog.ErrorContext(ctx, "Failed to release claim", "execution_id", exec.ID, "error", releaseErr)
		}
		return models.ResultNoop, err
	}

	slog.InfoContext(ctx, "Advancing execution", "execution_id", exec.ID, "from_step", step.ID, "to_step", next.ID)
	if err := p.executions.Advance(exec.ID, next.ID); err != nil {
		return models.ResultNoop, err
	}
	_, _ = p.actions.Save(&domain.ExecutionAction{
		ExecutionID: exec.ID, StepID: sql.NullInt64{Int64: step.ID, Valid: true},
		ProcessorID: p.processorID, Type: "TRANSITION", Name: step.StepType,
		Text: fmt.Sprintf("from step %d to step %d", step.ID, next.ID), DateTime: p.clock.Now(),
	})
	return models.ResultAdvanced, nil
}

// due decides whether the current step may run right now. Wait steps gate on
// elapsed days, everything else on its sendTiming.
func (p *ExecutionProcessor) due(exec *domain.WorkflowExecution, step *domain.Step, cfg *models.StepConfig) (bool, error) {
	if models.StepType(step.StepType) == models.StepWait {
		return WaitElapsed(exec, cfg, p.clock), nil
	}
	return p.timing.Due(exec, cfg)
}

func (p *ExecutionProcessor) complete(ctx context.Context, exec *domain.WorkflowExecution, step *domain.Step) (models.ProcessResult, error) {
	slog.InfoContext(ctx, "Execution completed", "execution_id", exec.ID)
	if err := p.executions.Complete(exec.ID); err != nil {
		return models.ResultNoop, err
	}
	action := &domain.ExecutionAction{
		ExecutionID: exec.ID, ProcessorID: p.processorID,
		Type: "COMPLETED", Name: "COMPLETED", Text: "no further steps", DateTime: p.clock.Now(),
	}
	if step != nil {
		action.StepID = sql.NullInt64{Int64: step.ID, Valid: true}
	}
	_, _ = p.actions.Save(action)
	return models.ResultCompleted, nil
}
