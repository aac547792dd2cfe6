package models

// ProcessResult is the outcome of one Process call on an execution.
type ProcessResult string

const (
	ResultAdvanced  ProcessResult = "advanced"
	ResultRepeated  ProcessResult = "repeated"
	ResultCompleted ProcessResult = "completed"
	ResultNoop      ProcessResult = "noop"
)

// EventFormSubmission is raised by the check-in subsystem when a client
// submits a form; it is the only external event kind currently wired.
const EventFormSubmission = "form_submission"

// ExternalEvent is a trigger raised by an unrelated subsystem that may
// unblock gated steps without waiting for the next scheduler tick.
type ExternalEvent struct {
	Kind   string
	FormID int64
}
