package repository

import (
	"context"

	"github.com/fluffytime/chat-server-go/internal/database"
	"github.com/fluffytime/chat-server-go/internal/model"
)

// UserRepository is the chat subsystem's read-only view of the user store.
// Profile columns are joined in so recipient info needs a single query.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByNickname(ctx context.Context, nickname string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type userRepo struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) UserRepository {
	return &userRepo{db: db}
}

const userSelect = `
	SELECT u.user_id, u.email, u.nickname, u.created_at,
	       p.pet_name, pi.file_path AS avatar_path
	FROM users u
	LEFT JOIN profiles p ON p.user_id = u.user_id
	LEFT JOIN profile_images pi ON pi.profile_id = p.id
`

func (r *userRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, userSelect+`WHERE u.user_id = $1`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByNickname(ctx context.Context, nickname string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, userSelect+`WHERE u.nickname = $1`, nickname)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, userSelect+`WHERE u.email = $1`, email)
	return HandleNotFound(&user, err)
}
