package repositories

import (
	"context"
	"errors"
	"fmt"

	"service-dispatch/internal/entities"
	apperrors "service-dispatch/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ChatRepositoryInterface interface {
	CreateSession(ctx context.Context, id uuid.UUID, customerID uint64) (*entities.ChatSession, error)
	FindSession(ctx context.Context, id uuid.UUID) (*entities.ChatSession, error)
	// AppendMessage returns ErrNotFound when the session does not exist.
	AppendMessage(ctx context.Context, sessionID uuid.UUID, sender entities.ChatSender, message string) (*entities.ChatMessage, error)
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]entities.ChatMessage, error)
}

type ChatRepository struct {
	storage DBPool
}

func NewChatRepository(storage DBPool) ChatRepositoryInterface {
	return &ChatRepository{storage: storage}
}

func (r *ChatRepository) CreateSession(ctx context.Context, id uuid.UUID, customerID uint64) (*entities.ChatSession, error) {
	s := &entities.ChatSession{ID: id, CustomerID: customerID, Messages: []entities.ChatMessage{}}
	err := r.storage.QueryRow(ctx,
		`INSERT INTO chat_sessions (session_id, customer_id) VALUES ($1, $2) RETURNING started_at`,
		id, customerID,
	).Scan(&s.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("insert chat session: %w", err)
	}
	return s, nil
}

func (r *ChatRepository) FindSession(ctx context.Context, id uuid.UUID) (*entities.ChatSession, error) {
	s := &entities.ChatSession{ID: id}
	err := r.storage.QueryRow(ctx,
		`SELECT customer_id, started_at FROM chat_sessions WHERE session_id = $1`, id,
	).Scan(&s.CustomerID, &s.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select chat session: %w", err)
	}
	return s, nil
}

func (r *ChatRepository) AppendMessage(ctx context.Context, sessionID uuid.UUID, sender entities.ChatSender, message string) (*entities.ChatMessage, error) {
	m := &entities.ChatMessage{Sender: sender, Message: message}
	err := r.storage.QueryRow(ctx, `
		INSERT INTO chat_messages (session_id, sender, message)
		SELECT $1::uuid, $2, $3
		WHERE EXISTS (SELECT 1 FROM chat_sessions WHERE session_id = $1::uuid)
		RETURNING created_at`,
		sessionID, string(sender), message,
	).Scan(&m.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	return m, nil
}

func (r *ChatRepository) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]entities.ChatMessage, error) {
	rows, err := r.storage.Query(ctx,
		`SELECT sender, message, created_at FROM chat_messages WHERE session_id = $1 ORDER BY message_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]entities.ChatMessage, 0)
	for rows.Next() {
		var m entities.ChatMessage
		var sender string
		if err := rows.Scan(&sender, &m.Message, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Sender = entities.ChatSender(sender)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
