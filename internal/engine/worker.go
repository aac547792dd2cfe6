package engine

import (
	"context"
	"errors"
	"log/slog"
)

// Worker drains the execution queue until ctx is cancelled. Claim conflicts
// and terminal executions are expected races, logged quietly.
func Worker(ctx context.Context, id int, processor Processor, queue <-chan int64) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Worker stopping", "worker_id", id)
			return
		case executionID := <-queue:
			slog.Debug("Worker processing execution", "worker_id", id, "execution_id", executionID)
			result, err := processor.Process(ctx, executionID)
			if err != nil {
				if errors.Is(err, ErrClaimConflict) || errors.Is(err, ErrAlreadyTerminal) {
					slog.Debug("Execution skipped", "worker_id", id, "execution_id", executionID, "reason", err)
				} else {
					slog.Error("Worker failed processing execution", "worker_id", id, "execution_id", executionID, "error", err)
				}
				continue
			}
			slog.Debug("Worker finished execution", "worker_id", id, "execution_id", executionID, "result", string(result))
		}
	}
}
