package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/engageflow/engageflow/internal/config"
	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

var executionQueue chan int64 // Initialized in Start using system setting

// Scheduler polls for processable executions and feeds them to a pool of
// workers. Triggers (form submissions, manual kicks) bypass the poll
// interval through NotifyExternalEvent and Wakeup.
type Scheduler struct {
	processor   Processor
	executions  ExecutionRepo
	steps       StepRepo
	actions     ExecutionActionRepo
	processors  ProcessorRepo
	processorID int64
	wakeup      chan struct{}
	clock       core.Clock
}

func NewScheduler(processor Processor, executions ExecutionRepo, steps StepRepo, actions ExecutionActionRepo,
	processors ProcessorRepo, processorID int64, clock core.Clock) *Scheduler {
	return &Scheduler{
		processor:   processor,
		executions:  executions,
		steps:       steps,
		actions:     actions,
		processors:  processors,
		processorID: processorID,
		wakeup:      make(chan struct{}, 1),
		clock:       clock,
	}
}

// RegisterProcessor records this engine instance in the processors table and
// starts the heartbeat that keeps its last_active fresh. The returned id is
// what every claim and audit row is attributed to.
func RegisterProcessor(processors ProcessorRepo, clock core.Clock) int64 {
	name := config.GetSystemSettingString(config.PROCESSOR_NAME)
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			name = "engageflow-engine"
		} else {
			name = hostname
		}
	}
	proc := &domain.Processor{Name: name, Started: clock.Now(), LastActive: clock.Now()}
	id, err := processors.Save(proc)
	if err != nil {
		slog.Error("Failed to register processor", "error", err)
		return 0
	}
	slog.Info("Registered processor", "processor_id", id, "name", name)
	// Heartbeat ticker updates last_active every 30s
	hb := time.NewTicker(30 * time.Second)
	go func(processorID int64) {
		for range hb.C {
			if err := processors.UpdateLastActive(processorID, time.Now()); err != nil {
				slog.Error("Failed to update processor last_active", "processor_id", processorID, "error", err)
			} else {
				slog.Debug("Updated processor last_active", "processor_id", processorID)
			}
		}
	}(id)
	return id
}

// Start runs the polling loop at the given interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	go s.startClaimRepairService(ctx)

	// Initialize execution queue size from system setting ENGINE_BATCH_SIZE
	queueSize := config.GetSystemSettingInteger(config.ENGINE_BATCH_SIZE)
	if queueSize <= 0 {
		queueSize = 10 // fallback default
	}
	executionQueue = make(chan int64, queueSize)

	workers := config.GetSystemSettingInteger(config.ENGINE_WORKER_SIZE)
	slog.Info("Starting execution engine", "workers", workers, "queue_size", queueSize)
	for i := 0; i < workers; i++ {
		go Worker(ctx, i, s.processor, executionQueue)
	}

	slog.Info("Execution engine started", "poll_interval", pollInterval.String())

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Execution engine stopping due to context cancel")
			return
		case <-ticker.C:
			s.Tick(ctx)
		case <-s.wakeup:
			s.Tick(ctx)
		}
	}
}

// Tick queries for processable executions and enqueues those whose current
// step could be due now. Wait steps with time still to run are skipped here
// so they do not churn the queue every poll.
func (s *Scheduler) Tick(ctx context.Context) {
	slog.Debug("Polling for processable executions")

	if executionQueue == nil {
		executionQueue = make(chan int64, config.GetSystemSettingInteger(config.ENGINE_BATCH_SIZE))
	}
	if len(executionQueue) >= cap(executionQueue) {
		slog.Warn("execution queue full, skipping poll, possibly slow or stuck steps")
		return
	}

	executions, err := s.executions.FindProcessable(config.GetSystemSettingInteger(config.ENGINE_BATCH_SIZE))
	if err != nil {
		slog.Error("Error fetching processable executions", "error", err)
		return
	}

	for _, exec := range *executions {
		if !s.maybeDue(ctx, &exec) {
			continue
		}
		select {
		case executionQueue <- exec.ID:
			slog.DebugContext(ctx, "Queued execution", "execution_id", exec.ID)
		default:
			slog.Warn("execution queue full mid poll, remaining executions wait for next tick")
			return
		}
	}
}

// maybeDue is a cheap pre-filter; the processor re-checks under claim. Only
// wait steps are filtered out here since their not-due window is usually
// days long. Anything unreadable is left for the processor to report on.
func (s *Scheduler) maybeDue(ctx context.Context, exec *domain.WorkflowExecution) bool {
	if !exec.CurrentStepID.Valid {
		return true
	}
	step, err := s.steps.FindByID(exec.CurrentStepID.Int64)
	if err != nil {
		return true
	}
	if models.StepType(step.StepType) != models.StepWait {
		return true
	}
	cfg, err := models.ParseStepConfig(models.StepWait, step.Config)
	if err != nil {
		return true
	}
	if WaitElapsed(exec, cfg, s.clock) {
		return true
	}
	slog.DebugContext(ctx, "Wait step not elapsed, skipping", "execution_id", exec.ID, "step_id", step.ID)
	return false
}

// NotifyExternalEvent reacts to a domain event without waiting for the next
// poll. A form submission processes, inline, every active execution of the
// client whose current step is gated on that form; errors on one execution
// never stop the rest.
func (s *Scheduler) NotifyExternalEvent(ctx context.Context, clientID int64, event models.ExternalEvent) {
	if event.Kind != models.EventFormSubmission {
		slog.WarnContext(ctx, "Unknown external event kind", "kind", event.Kind)
		return
	}
	executions, err := s.executions.FindActiveByClient(clientID)
	if err != nil {
		slog.ErrorContext(ctx, "Error fetching executions for event", "client_id", clientID, "error", err)
		return
	}
	for _, exec := range *executions {
		if !s.waitingOnForm(&exec, event.FormID) {
			continue
		}
		result, err := s.processor.Process(ctx, exec.ID)
		if err != nil {
			slog.WarnContext(ctx, "Trigger processing failed", "execution_id", exec.ID, "error", err)
			continue
		}
		slog.InfoContext(ctx, "Trigger processed execution", "execution_id", exec.ID, "result", string(result))
	}
}

func (s *Scheduler) waitingOnForm(exec *domain.WorkflowExecution, formID int64) bool {
	if !exec.CurrentStepID.Valid {
		return false
	}
	step, err := s.steps.FindByID(exec.CurrentStepID.Int64)
	if err != nil {
		return false
	}
	if models.StepType(step.StepType) == models.StepWait {
		return false
	}
	cfg, err := models.ParseStepConfig(models.StepType(step.StepType), step.Config)
	if err != nil {
		return false
	}
	return cfg.TimingOrDefault() == models.TimingAfterFormSubmission && cfg.TriggerFormID == formID
}

// startClaimRepairService frees executions whose claiming processor has gone
// quiet, so a crashed instance never strands work. The claim release races
// with nothing since the owner is, by definition, not heartbeating.
func (s *Scheduler) startClaimRepairService(ctx context.Context) {
	dur, _ := time.ParseDuration(config.GetSystemSettingString(config.ENGINE_REPAIR_INTERVAL))
	ticker := time.NewTicker(dur)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Claim repair service stopping due to context cancel")
			return
		case <-ticker.C:
			stale, err := s.executions.FindStaleClaims(
				config.GetSystemSettingInteger(config.ENGINE_REPAIR_AFTER_MINUTES), 100)
			if err != nil {
				slog.Error("Error finding stale claims", "error", err)
				continue
			}
			for _, exec := range *stale {
				slog.Warn("Repairing stale claim", "execution_id", exec.ID, "previous_processor", exec.ProcessorID.Int64)
				_, _ = s.actions.Save(&domain.ExecutionAction{
					ExecutionID: exec.ID,
					ProcessorID: s.processorID,
					Type:        "REPAIRED",
					Name:        "REPAIRED",
					Text:        "Released stale claim, previous processor was: " + fmt.Sprint(exec.ProcessorID.Int64),
					DateTime:    s.clock.Now(),
				})
				if err := s.executions.ReleaseClaim(exec.ID); err != nil {
					slog.ErrorContext(ctx, "Failed to release stale claim", "execution_id", exec.ID, "error", err)
				}
			}
			if len(*stale) > 0 {
				s.Wakeup()
			}
		}
	}
}

func (s *Scheduler) Wakeup() {
	slog.Info("Wakeup Scheduler called")
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}
