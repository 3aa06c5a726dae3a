package repository

import (
	"context"

	"github.com/fluffytime/chat-server-go/internal/database"
	"github.com/fluffytime/chat-server-go/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, params model.CreateMessageParams) (*model.ChatMessage, error)
	FindByRoomID(ctx context.Context, roomID int64) ([]model.ChatMessage, error)
	FindLatestByRoomID(ctx context.Context, roomID int64) (*model.ChatMessage, error)
	DeleteOrphaned(ctx context.Context) (int64, error)
}

type messageRepo struct {
	db database.DBTX
}

func NewMessageRepository(db database.DBTX) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO chat_messages (room_id, sender, content)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.RoomID, params.Sender, params.Content)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) FindByRoomID(ctx context.Context, roomID int64) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM chat_messages
		WHERE room_id = $1
		ORDER BY id ASC
	`, roomID)
	return msgs, err
}

func (r *messageRepo) FindLatestByRoomID(ctx context.Context, roomID int64) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.GetContext(ctx, &msg, `
		SELECT * FROM chat_messages
		WHERE room_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, roomID)
	return HandleNotFound(&msg, err)
}

// DeleteOrphaned removes messages whose room is gone (room deletion cascade).
func (r *messageRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM chat_messages m
		WHERE NOT EXISTS (SELECT 1 FROM chat_rooms c WHERE c.id = m.room_id)
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
