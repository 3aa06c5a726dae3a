package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fluffytime/chat-server-go/internal/model"
	"github.com/fluffytime/chat-server-go/internal/repository"
)

// MessageService is the append-only message log. Durability here is
// independent of live delivery; a message lost on the bus is simply absent
// from the log, never half-written.
type MessageService struct {
	repo repository.MessageRepository
}

func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// Append records a message. Content is accepted as-is; empty strings are
// legitimate messages.
func (s *MessageService) Append(ctx context.Context, roomID int64, sender, content string) (*model.ChatMessage, error) {
	msg, err := s.repo.Create(ctx, model.CreateMessageParams{
		RoomID:  roomID,
		Sender:  sender,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	log.Debug().
		Int64("roomId", roomID).
		Str("sender", sender).
		Msg("message appended")

	return msg, nil
}

// LatestForRoom returns the most recent message, or nil when the room has no
// history yet.
func (s *MessageService) LatestForRoom(ctx context.Context, roomID int64) (*model.ChatMessage, error) {
	return s.repo.FindLatestByRoomID(ctx, roomID)
}

// AllForRoom returns the full history in append order. May be empty.
func (s *MessageService) AllForRoom(ctx context.Context, roomID int64) ([]model.ChatMessage, error) {
	return s.repo.FindByRoomID(ctx, roomID)
}
