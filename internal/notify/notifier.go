package notify

import (
	"context"
	"log/slog"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
)

// FormNotifier prompts a client to complete a form. Delivery is best effort;
// a false return means the prompt did not reach the client.
type FormNotifier interface {
	Deliver(ctx context.Context, client *domain.Client, message string) (bool, error)
}

// MessageNotifier delivers a plain notification to a client.
type MessageNotifier interface {
	Deliver(ctx context.Context, client *domain.Client, title string, message string) (bool, error)
}

// NotificationStore is the persistence the store-backed notifiers need.
type NotificationStore interface {
	Save(n *domain.Notification) (int64, error)
	SaveRecipient(rec *domain.NotificationRecipient) (int64, error)
}

func storeNotification(ctx context.Context, store NotificationStore, clock core.Clock, client *domain.Client, title string, message string) (bool, error) {
	notification := &domain.Notification{
		TrainerID: client.TrainerID,
		Title:     title,
		Message:   message,
		Type:      "workflow",
		Created:   clock.Now(),
	}
	if _, err := store.Save(notification); err != nil {
		return false, err
	}
	_, err := store.SaveRecipient(&domain.NotificationRecipient{
		NotificationID: notification.ID,
		ClientID:       client.ID,
		Status:         "sent",
		Created:        clock.Now(),
	})
	if err != nil {
		return false, err
	}
	slog.DebugContext(ctx, "Notification stored for delivery", "notification_id", notification.ID, "client_id", client.ID)
	return true, nil
}

// StoreFormNotifier writes a form prompt as notification rows; the actual
// transport (push/SMS/socket) picks them up out of band.
type StoreFormNotifier struct {
	store NotificationStore
	clock core.Clock
}

func NewStoreFormNotifier(store NotificationStore, clock core.Clock) *StoreFormNotifier {
	return &StoreFormNotifier{store: store, clock: clock}
}

func (n *StoreFormNotifier) Deliver(ctx context.Context, client *domain.Client, message string) (bool, error) {
	return storeNotification(ctx, n.store, n.clock, client, "New Form Available", message)
}

// StoreMessageNotifier is the notification-step counterpart of
// StoreFormNotifier.
type StoreMessageNotifier struct {
	store NotificationStore
	clock core.Clock
}

func NewStoreMessageNotifier(store NotificationStore, clock core.Clock) *StoreMessageNotifier {
	return &StoreMessageNotifier{store: store, clock: clock}
}

func (n *StoreMessageNotifier) Deliver(ctx context.Context, client *domain.Client, title string, message string) (bool, error) {
	return storeNotification(ctx, n.store, n.clock, client, title, message)
}
