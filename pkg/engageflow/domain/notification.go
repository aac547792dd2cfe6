package domain

import "time"

type Notification struct {
	ID        int64
	TrainerID int64
	Title     string
	Message   string
	Type      string
	Created   time.Time
}

type NotificationRecipient struct {
	ID             int64
	NotificationID int64
	ClientID       int64
	Status         string
	Created        time.Time
}
