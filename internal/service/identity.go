package service

import (
	"context"
	"fmt"

	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
	"github.com/fluffytime/chat-server-go/internal/model"
	"github.com/fluffytime/chat-server-go/internal/repository"
	"github.com/fluffytime/chat-server-go/internal/token"
)

// IdentityService maps tokens, nicknames and emails to user records.
// It never writes to the user store.
type IdentityService struct {
	userRepo  repository.UserRepository
	tokenizer *token.Tokenizer
}

func NewIdentityService(userRepo repository.UserRepository, tokenizer *token.Tokenizer) *IdentityService {
	return &IdentityService{
		userRepo:  userRepo,
		tokenizer: tokenizer,
	}
}

// ResolveToken validates an access token and loads its user.
func (s *IdentityService) ResolveToken(ctx context.Context, accessToken string) (*model.User, error) {
	if accessToken == "" {
		return nil, apperrors.Unauthenticated()
	}

	userID, err := s.tokenizer.UserIDFromAccess(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	if user == nil {
		return nil, apperrors.UserNotFound()
	}
	return user, nil
}

func (s *IdentityService) ResolveNickname(ctx context.Context, nickname string) (*model.User, error) {
	user, err := s.userRepo.FindByNickname(ctx, nickname)
	if err != nil {
		return nil, fmt.Errorf("find user by nickname: %w", err)
	}
	if user == nil {
		return nil, apperrors.UserNotFound()
	}
	return user, nil
}

func (s *IdentityService) ResolveID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	if user == nil {
		return nil, apperrors.UserNotFound()
	}
	return user, nil
}

// ResolveRefreshToken validates a refresh token and loads the user behind its
// subject email. Used by the access-token reissue flow.
func (s *IdentityService) ResolveRefreshToken(ctx context.Context, refreshToken string) (*model.User, error) {
	if refreshToken == "" {
		return nil, apperrors.Unauthenticated()
	}

	email, err := s.tokenizer.EmailFromRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user == nil {
		return nil, apperrors.UserNotFound()
	}
	return user, nil
}
