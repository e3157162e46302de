package dto

import "time"

type StartChatDTO struct {
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone" validate:"required,phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

type StartChatResultDTO struct {
	SessionID  string `json:"sessionId"`
	CustomerID uint64 `json:"customerId"`
	Greeting   string `json:"greeting"`
}

type ChatMessageDTO struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
	Message   string `json:"message" validate:"required,max=4000"`
	Sender    string `json:"sender" validate:"omitempty,oneof=customer staff"`
}

type ChatReplyDTO struct {
	Reply string `json:"reply"`
}

type ChatEntryDTO struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatHistoryDTO struct {
	SessionID  string         `json:"sessionId"`
	CustomerID uint64         `json:"customerId"`
	StartedAt  time.Time      `json:"startedAt"`
	Messages   []ChatEntryDTO `json:"messages"`
}
