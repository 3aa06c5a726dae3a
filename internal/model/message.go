package model

import "time"

// ChatMessage is one append-only row of a room's history. Sender is the
// string-encoded user id, exactly as it arrives on the wire.
type ChatMessage struct {
	ID        int64     `db:"id" json:"id"`
	RoomID    int64     `db:"room_id" json:"roomId"`
	Sender    string    `db:"sender" json:"sender"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateMessageParams struct {
	RoomID  int64
	Sender  string
	Content string
}
