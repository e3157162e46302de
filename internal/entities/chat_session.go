package entities

import (
	"time"

	"github.com/google/uuid"
)

type ChatSender string

const (
	SenderCustomer ChatSender = "customer"
	SenderStaff    ChatSender = "staff"
	SenderAI       ChatSender = "ai"
)

func (s ChatSender) Valid() bool {
	switch s {
	case SenderCustomer, SenderStaff, SenderAI:
		return true
	}
	return false
}

type ChatMessage struct {
	Sender    ChatSender `json:"sender"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

// ChatSession holds an append-only transcript ordered by insertion.
type ChatSession struct {
	ID         uuid.UUID     `json:"session_id"`
	CustomerID uint64        `json:"customer_id"`
	StartedAt  time.Time     `json:"started_at"`
	Messages   []ChatMessage `json:"messages"`
}
