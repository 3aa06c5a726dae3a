package model

import "time"

// User is a row from the user store, joined with its profile. The chat
// subsystem only ever reads users; account CRUD lives elsewhere.
type User struct {
	ID         int64     `db:"user_id" json:"userId"`
	Email      string    `db:"email" json:"email"`
	Nickname   string    `db:"nickname" json:"nickname"`
	PetName    *string   `db:"pet_name" json:"petName,omitempty"`
	AvatarPath *string   `db:"avatar_path" json:"avatarPath,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
