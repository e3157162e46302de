package services

import (
	"context"
	"fmt"
	"strings"

	"service-dispatch/internal/dto"
	"service-dispatch/internal/entities"
	"service-dispatch/internal/repositories"
	apperrors "service-dispatch/pkg/errors"
	"service-dispatch/pkg/utils"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatServiceInterface interface {
	StartSession(ctx context.Context, d dto.StartChatDTO) (*dto.StartChatResultDTO, error)
	PostMessage(ctx context.Context, d dto.ChatMessageDTO) (*dto.ChatReplyDTO, error)
	GetHistory(ctx context.Context, sessionID string) (*dto.ChatHistoryDTO, error)
}

type ChatService struct {
	customerRepo repositories.CustomerRepositoryInterface
	chatRepo     repositories.ChatRepositoryInterface
	responder    Responder
	newID        func() uuid.UUID
	logger       *zap.Logger
}

func NewChatService(
	customerRepo repositories.CustomerRepositoryInterface,
	chatRepo repositories.ChatRepositoryInterface,
	responder Responder,
	logger *zap.Logger,
) ChatServiceInterface {
	return &ChatService{
		customerRepo: customerRepo,
		chatRepo:     chatRepo,
		responder:    responder,
		newID:        uuid.New,
		logger:       logger,
	}
}

func greetingFor(firstName string) string {
	return fmt.Sprintf("Hi %s! 👋 How can I help you today?", firstName)
}

func (s *ChatService) StartSession(ctx context.Context, d dto.StartChatDTO) (*dto.StartChatResultDTO, error) {
	name := strings.TrimSpace(d.Name)
	phone := utils.NormalizePhone(d.Phone)
	email := strings.TrimSpace(d.Email)
	if name == "" {
		return nil, apperrors.NewValidationError("name", "Name is required")
	}
	if phone == "" {
		return nil, apperrors.NewValidationError("phone", "Phone is required")
	}

	first, last := utils.SplitName(name)
	customer, err := s.customerRepo.FindOrCreateByPhone(ctx, nil, entities.Customer{
		Name:      name,
		FirstName: first,
		LastName:  last,
		Phone:     phone,
		Email:     null.NewString(email, email != ""),
	})
	if err != nil {
		return nil, err
	}

	session, err := s.chatRepo.CreateSession(ctx, s.newID(), customer.ID)
	if err != nil {
		return nil, err
	}

	greeting := greetingFor(first)
	if _, err := s.chatRepo.AppendMessage(ctx, session.ID, entities.SenderAI, greeting); err != nil {
		s.logger.Warn("greeting not saved to transcript", zap.String("session_id", session.ID.String()), zap.Error(err))
	}

	s.logger.Info("chat session started",
		zap.String("session_id", session.ID.String()),
		zap.Uint64("customer_id", customer.ID),
	)
	return &dto.StartChatResultDTO{
		SessionID:  session.ID.String(),
		CustomerID: customer.ID,
		Greeting:   greeting,
	}, nil
}

func parseSessionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperrors.ErrNotFound
	}
	return id, nil
}

// PostMessage records the inbound message, asks the responder and records its reply.
func (s *ChatService) PostMessage(ctx context.Context, d dto.ChatMessageDTO) (*dto.ChatReplyDTO, error) {
	sessionID, err := parseSessionID(d.SessionID)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(d.Message)
	if text == "" {
		return nil, apperrors.NewValidationError("message", "Message is required")
	}
	sender := entities.SenderCustomer
	if d.Sender != "" {
		sender = entities.ChatSender(d.Sender)
	}
	if !sender.Valid() || sender == entities.SenderAI {
		return nil, apperrors.NewValidationError("sender", "Sender must be customer or staff")
	}

	if _, err := s.chatRepo.AppendMessage(ctx, sessionID, sender, text); err != nil {
		return nil, err
	}

	reply, err := s.responder.Respond(ctx, text)
	if err != nil {
		s.logger.Error("responder failed", zap.String("session_id", sessionID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: responder: %v", apperrors.ErrDependency, err)
	}

	if _, err := s.chatRepo.AppendMessage(ctx, sessionID, entities.SenderAI, reply); err != nil {
		return nil, err
	}
	return &dto.ChatReplyDTO{Reply: reply}, nil
}

func (s *ChatService) GetHistory(ctx context.Context, rawID string) (*dto.ChatHistoryDTO, error) {
	sessionID, err := parseSessionID(rawID)
	if err != nil {
		return nil, err
	}
	session, err := s.chatRepo.FindSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.chatRepo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := &dto.ChatHistoryDTO{
		SessionID:  session.ID.String(),
		CustomerID: session.CustomerID,
		StartedAt:  session.StartedAt,
		Messages:   make([]dto.ChatEntryDTO, 0, len(msgs)),
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, dto.ChatEntryDTO{
			Sender:    string(m.Sender),
			Message:   m.Message,
			Timestamp: m.Timestamp,
		})
	}
	return out, nil
}
