package domain

import "time"

type Trainer struct {
	ID         int64
	Name       string
	APIKeyHash string
	Created    time.Time
}

type Client struct {
	ID        int64
	TrainerID int64
	FullName  string
	Email     string
}

type Processor struct {
	ID         int64
	Name       string
	Started    time.Time
	LastActive time.Time
}
