package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/fluffytime/chat-server-go/internal/database"
	"github.com/fluffytime/chat-server-go/internal/model"
)

// ErrRoomNameTaken is returned by Create when another caller inserted a room
// with the same name first. The unique constraint on room_name is the arbiter;
// callers re-fetch instead of failing.
var ErrRoomNameTaken = errors.New("room name already taken")

type RoomRepository interface {
	FindByName(ctx context.Context, roomName string) (*model.ChatRoom, error)
	Create(ctx context.Context, params model.CreateRoomParams) (*model.ChatRoom, error)
	RoomNamesForUser(ctx context.Context, userID int64) ([]string, error)
	OtherParticipants(ctx context.Context, userID int64) ([]int64, error)
	DeleteForUser(ctx context.Context, userID int64) (int64, error)
	DeleteOrphaned(ctx context.Context) (int64, error)
}

type roomRepo struct {
	db database.DBTX
}

func NewRoomRepository(db database.DBTX) RoomRepository {
	return &roomRepo{db: db}
}

// RoomTxRunner executes a function against a transaction-scoped
// RoomRepository. It backs the registry's create-or-fetch path.
type RoomTxRunner struct {
	db *database.DB
}

func NewRoomTxRunner(db *database.DB) *RoomTxRunner {
	return &RoomTxRunner{db: db}
}

func (r *RoomTxRunner) InTx(ctx context.Context, fn func(RoomRepository) error) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(NewRoomRepository(tx))
	})
}

func (r *roomRepo) FindByName(ctx context.Context, roomName string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.db.GetContext(ctx, &room, `
		SELECT * FROM chat_rooms WHERE room_name = $1
	`, roomName)
	return HandleNotFound(&room, err)
}

// Create inserts a room, deferring to an existing row on a name collision.
// ON CONFLICT DO NOTHING keeps a surrounding transaction healthy where a
// raised unique violation would abort it, so the lost race surfaces as
// ErrRoomNameTaken and the caller can re-read in the same transaction.
func (r *roomRepo) Create(ctx context.Context, params model.CreateRoomParams) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.db.GetContext(ctx, &room, `
		INSERT INTO chat_rooms (room_name, userid1, userid2)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_name) DO NOTHING
		RETURNING *
	`, params.RoomName, params.UserID1, params.UserID2)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNameTaken
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) RoomNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := r.db.SelectContext(ctx, &names, `
		SELECT room_name FROM chat_rooms
		WHERE userid1 = $1 OR userid2 = $1
		ORDER BY room_name
	`, userID)
	return names, err
}

func (r *roomRepo) OtherParticipants(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `
		SELECT CASE WHEN userid1 = $1 THEN userid2 ELSE userid1 END
		FROM chat_rooms
		WHERE userid1 = $1 OR userid2 = $1
		ORDER BY 1
	`, userID)
	return ids, err
}

func (r *roomRepo) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM chat_rooms WHERE userid1 = $1 OR userid2 = $1
	`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteOrphaned removes rooms referencing users that no longer exist.
// Account deletion happens in another service; this is the cascade on our side.
func (r *roomRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM chat_rooms c
		WHERE NOT EXISTS (SELECT 1 FROM users u WHERE u.user_id = c.userid1)
		   OR NOT EXISTS (SELECT 1 FROM users u WHERE u.user_id = c.userid2)
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
