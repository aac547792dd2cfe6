package models

// StepType is the closed set of step kinds the engine knows how to run.
type StepType string

const (
	StepAudience     StepType = "audience"
	StepForm         StepType = "form"
	StepNotification StepType = "notification"
	StepWait         StepType = "wait"
	StepCondition    StepType = "condition"
)

func (t StepType) Valid() bool {
	switch t {
	case StepAudience, StepForm, StepNotification, StepWait, StepCondition:
		return true
	}
	return false
}

// Execution statuses. The engine only ever scans executions in
// ExecutionActive; Completed and Cancelled are terminal, Paused may be
// resumed through the API.
const (
	ExecutionActive    = "active"
	ExecutionPaused    = "paused"
	ExecutionCompleted = "completed"
	ExecutionCancelled = "cancelled"
)

// RepeatPolicy decides whether the current step runs again before advancing.
type RepeatPolicy string

const (
	RepeatOnce                  RepeatPolicy = "once"
	RepeatUntilSubscriptionEnds RepeatPolicy = "until_subscription_ends"
	RepeatCustom                RepeatPolicy = "custom"
)

// SendTiming gates when a step becomes due relative to the execution.
type SendTiming string

const (
	TimingImmediate             SendTiming = "immediate"
	TimingDelayDays             SendTiming = "delay_days"
	TimingAfterFormSubmission   SendTiming = "after_form_submission"
	TimingBeforeSubscriptionEnd SendTiming = "before_subscription_end"
)
