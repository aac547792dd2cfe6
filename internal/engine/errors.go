package engine

import "errors"

var (
	// ErrNotFound means the execution, or something it references, no longer
	// exists. Non-fatal: the unit of work is logged and skipped.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyTerminal means the execution is not active; Process reports
	// it as a noop.
	ErrAlreadyTerminal = errors.New("execution is not active")

	// ErrClaimConflict means another processor holds the lease. Normal under
	// concurrency; the execution is retried on a later tick.
	ErrClaimConflict = errors.New("execution is claimed by another processor")

	// ErrConfiguration means a step config failed validation. The execution
	// is left untouched so the inconsistency stays visible.
	ErrConfiguration = errors.New("invalid step configuration")
)
