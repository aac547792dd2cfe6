package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/engageflow/engageflow/internal/engine"
	"github.com/engageflow/engageflow/pkg/engageflow/core"
)

// AuthController authenticates API requests. Keys look like
// "<trainerId>.<secret>"; the trainer row stores a bcrypt hash of the secret,
// so the id part is what lets us find the row to compare against.
type AuthController struct {
	TrainerRepo engine.TrainerRepo
}

func NewBaseController(trainerRepo engine.TrainerRepo) *AuthController {
	return &AuthController{TrainerRepo: trainerRepo}
}

func (ac *AuthController) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Supported headers: X-API-Key: <trainerId>.<secret>
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		idPart, secret, found := strings.Cut(apiKey, ".")
		if !found || secret == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		trainerID, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		trainer, err := ac.TrainerRepo.FindByID(trainerID)
		if err != nil || trainer == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(trainer.APIKeyHash), []byte(secret)) != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Add the trainer id to the request context
		ctx := context.WithValue(r.Context(), core.CtxKeyTrainerId, trainer.ID)
		next(w, r.WithContext(ctx))
	}
}

// trainerFromContext returns the authenticated trainer id, 0 when absent.
func trainerFromContext(ctx context.Context) int64 {
	if v := ctx.Value(core.CtxKeyTrainerId); v != nil {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
