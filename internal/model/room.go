package model

import "time"

// ChatRoom is the persisted record of a two-party conversation.
// RoomName is unique; the database constraint is what arbitrates
// concurrent creation for the same pair.
type ChatRoom struct {
	ID        int64     `db:"id" json:"id"`
	RoomName  string    `db:"room_name" json:"roomName"`
	UserID1   int64     `db:"userid1" json:"userId1"`
	UserID2   int64     `db:"userid2" json:"userId2"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateRoomParams struct {
	RoomName string
	UserID1  int64
	UserID2  int64
}
