package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffytime/chat-server-go/internal/model"
	"github.com/fluffytime/chat-server-go/internal/service"
	"github.com/fluffytime/chat-server-go/internal/token"
)

func TestAuthHandlerRefresh(t *testing.T) {
	alice := &model.User{ID: 1, Email: "alice@example.com", Nickname: "alice"}
	tokenizer := token.NewTokenizer("test-access-secret", "test-refresh-secret", time.Hour, 24*time.Hour)

	users := &fakeUserRepo{
		findByEmail: func(ctx context.Context, email string) (*model.User, error) {
			if email == "alice@example.com" {
				return alice, nil
			}
			return nil, nil
		},
	}
	identity := service.NewIdentityService(users, tokenizer)
	handler := NewAuthHandler(identity, tokenizer, time.Hour, false)

	t.Run("reissues access token cookie", func(t *testing.T) {
		refresh, err := tokenizer.IssueRefreshToken(alice.ID, alice.Email, alice.Nickname, []string{"ROLE_USER"})
		require.NoError(t, err)

		req := httptest.NewRequest("POST", "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: token.RefreshTokenCookie, Value: refresh})
		rec := httptest.NewRecorder()

		handler.Refresh(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var issued *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == token.AccessTokenCookie {
				issued = c
			}
		}
		require.NotNil(t, issued)
		assert.True(t, issued.HttpOnly)

		// The new cookie must itself resolve to alice.
		claims, err := tokenizer.Parse(issued.Value, token.ClassAccess)
		require.NoError(t, err)
		assert.Equal(t, int64(1), claims.UserID)
	})

	t.Run("rejects missing refresh cookie", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/auth/refresh", nil)
		rec := httptest.NewRecorder()

		handler.Refresh(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects access token posing as refresh token", func(t *testing.T) {
		access, err := tokenizer.IssueAccessToken(alice.ID, alice.Email, alice.Nickname, nil)
		require.NoError(t, err)

		req := httptest.NewRequest("POST", "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: token.RefreshTokenCookie, Value: access})
		rec := httptest.NewRecorder()

		handler.Refresh(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects refresh token for deleted user", func(t *testing.T) {
		refresh, err := tokenizer.IssueRefreshToken(99, "gone@example.com", "gone", nil)
		require.NoError(t, err)

		req := httptest.NewRequest("POST", "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: token.RefreshTokenCookie, Value: refresh})
		rec := httptest.NewRecorder()

		handler.Refresh(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
