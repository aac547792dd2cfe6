package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/engageflow/engageflow/pkg/engageflow/domain"
)

type mockStore struct {
	SaveFunc          func(n *domain.Notification) (int64, error)
	SaveRecipientFunc func(rec *domain.NotificationRecipient) (int64, error)
	notifications     []domain.Notification
	recipients        []domain.NotificationRecipient
}

func (m *mockStore) Save(n *domain.Notification) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(n)
	}
	n.ID = int64(len(m.notifications) + 1)
	m.notifications = append(m.notifications, *n)
	return n.ID, nil
}

func (m *mockStore) SaveRecipient(rec *domain.NotificationRecipient) (int64, error) {
	if m.SaveRecipientFunc != nil {
		return m.SaveRecipientFunc(rec)
	}
	rec.ID = int64(len(m.recipients) + 1)
	m.recipients = append(m.recipients, *rec)
	return rec.ID, nil
}

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time                         { return c.now }
func (c *stubClock) After(d time.Duration) <-chan time.Time { return time.After(0) }
func (c *stubClock) Sleep(d time.Duration)                  {}

func TestStoreFormNotifier_WritesNotificationAndRecipient(t *testing.T) {
	store := &mockStore{}
	clock := &stubClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	n := NewStoreFormNotifier(store, clock)

	client := &domain.Client{ID: 11, TrainerID: 3, FullName: "Test Client"}
	ok, err := n.Deliver(context.Background(), client, "Please complete the form: Check-in")
	if err != nil || !ok {
		t.Fatalf("Deliver failed: ok=%v err=%v", ok, err)
	}

	if len(store.notifications) != 1 {
		t.Fatalf("Expected one notification, got %d", len(store.notifications))
	}
	saved := store.notifications[0]
	if saved.TrainerID != 3 || saved.Type != "workflow" || saved.Title != "New Form Available" {
		t.Errorf("Unexpected notification row: %+v", saved)
	}
	if len(store.recipients) != 1 {
		t.Fatalf("Expected one recipient, got %d", len(store.recipients))
	}
	rec := store.recipients[0]
	if rec.ClientID != 11 || rec.NotificationID != saved.ID || rec.Status != "sent" {
		t.Errorf("Unexpected recipient row: %+v", rec)
	}
}

func TestStoreMessageNotifier_UsesGivenTitle(t *testing.T) {
	store := &mockStore{}
	n := NewStoreMessageNotifier(store, &stubClock{now: time.Now()})

	client := &domain.Client{ID: 11, TrainerID: 3}
	ok, err := n.Deliver(context.Background(), client, "Week 4", "Keep it up")
	if err != nil || !ok {
		t.Fatalf("Deliver failed: ok=%v err=%v", ok, err)
	}
	if store.notifications[0].Title != "Week 4" || store.notifications[0].Message != "Keep it up" {
		t.Errorf("Unexpected notification row: %+v", store.notifications[0])
	}
}

func TestStoreNotifier_SaveErrorIsReturned(t *testing.T) {
	store := &mockStore{
		SaveFunc: func(n *domain.Notification) (int64, error) { return 0, errors.New("db down") },
	}
	n := NewStoreMessageNotifier(store, &stubClock{now: time.Now()})

	ok, err := n.Deliver(context.Background(), &domain.Client{ID: 11, TrainerID: 3}, "t", "m")
	if ok || err == nil {
		t.Error("Expected a failed delivery when the store errors")
	}
}
