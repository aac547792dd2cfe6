package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/engageflow/engageflow/internal/engine"
)

// ProcessorsController exposes the registered engine instances so operators
// can see which processors are alive and heartbeating.
type ProcessorsController struct {
	AuthController
	ProcessorsRepo engine.ProcessorRepo
}

func NewProcessorsController(processorsRepo engine.ProcessorRepo, trainerRepo engine.TrainerRepo) *ProcessorsController {
	return &ProcessorsController{
		ProcessorsRepo: processorsRepo,
		AuthController: AuthController{
			TrainerRepo: trainerRepo,
		},
	}
}

func (c *ProcessorsController) handleGetProcessors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	results, err := c.ProcessorsRepo.GetProcessorsByLastActive(20)
	if err != nil {
		slog.Error("Failed to search processors", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(results)
}
