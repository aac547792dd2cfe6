package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/engageflow/engageflow/internal/engine"
	"github.com/engageflow/engageflow/internal/repository"
	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

// EventsController receives external domain events that should move
// executions forward without waiting for the next poll.
type EventsController struct {
	AuthController
	FormRepo         *repository.FormRepository
	ClientRepo       *repository.ClientRepository
	NotificationRepo engine.NotificationRepo
	Scheduler        *engine.Scheduler
	Clock            core.Clock
}

func NewEventsController(formRepo *repository.FormRepository, clientRepo *repository.ClientRepository,
	notificationRepo engine.NotificationRepo, scheduler *engine.Scheduler,
	trainerRepo engine.TrainerRepo, clock core.Clock) *EventsController {
	return &EventsController{
		FormRepo:         formRepo,
		ClientRepo:       clientRepo,
		NotificationRepo: notificationRepo,
		Scheduler:        scheduler,
		Clock:            clock,
		AuthController:   AuthController{TrainerRepo: trainerRepo},
	}
}

func (c *EventsController) handleFormSubmission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.FormSubmissionEvent
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.ClientID <= 0 || req.FormID <= 0 {
		http.Error(w, "clientId and formId are required", http.StatusBadRequest)
		return
	}

	trainerID := trainerFromContext(r.Context())
	client, err := c.ClientRepo.FindByID(req.ClientID)
	if err != nil || client == nil || client.TrainerID != trainerID {
		http.Error(w, "client not found", http.StatusNotFound)
		return
	}
	form, err := c.FormRepo.FindByID(req.FormID)
	if err != nil || form == nil {
		http.Error(w, "form not found", http.StatusNotFound)
		return
	}

	submission := &domain.FormSubmission{
		FormID:      req.FormID,
		ClientID:    req.ClientID,
		SubmittedAt: c.Clock.Now().UTC(),
	}
	if _, err := c.FormRepo.SaveSubmission(submission); err != nil {
		slog.Error("Failed to save form submission", "form_id", req.FormID, "client_id", req.ClientID, "error", err)
		http.Error(w, "failed to save submission", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "Form submission received", "form_id", req.FormID, "client_id", req.ClientID)
	c.Scheduler.NotifyExternalEvent(r.Context(), req.ClientID, models.ExternalEvent{
		Kind:   models.EventFormSubmission,
		FormID: req.FormID,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (c *EventsController) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	trainerID := trainerFromContext(r.Context())
	notifications, err := c.NotificationRepo.FindByTrainer(trainerID, 100)
	if err != nil {
		slog.Error("Failed to list notifications", "trainer_id", trainerID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(notifications)
}
