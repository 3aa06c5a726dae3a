package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
	"github.com/fluffytime/chat-server-go/internal/model"
	"github.com/fluffytime/chat-server-go/internal/token"
)

type fakeResolver struct {
	resolveFunc func(ctx context.Context, accessToken string) (*model.User, error)
}

func (f *fakeResolver) ResolveToken(ctx context.Context, accessToken string) (*model.User, error) {
	if f.resolveFunc != nil {
		return f.resolveFunc(ctx, accessToken)
	}
	return nil, apperrors.InvalidToken("Invalid token")
}

func TestAuthMiddleware(t *testing.T) {
	testUser := &model.User{ID: 1, Email: "alice@example.com", Nickname: "alice"}
	validToken := "valid-token"

	resolver := &fakeResolver{
		resolveFunc: func(ctx context.Context, accessToken string) (*model.User, error) {
			if accessToken == validToken {
				return testUser, nil
			}
			return nil, apperrors.InvalidToken("Invalid token")
		},
	}

	t.Run("allows request with access token cookie", func(t *testing.T) {
		m := NewAuthMiddleware(resolver)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			require.NotNil(t, user)
			assert.Equal(t, "alice", user.Nickname)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/test", nil)
		req.AddCookie(&http.Cookie{Name: token.AccessTokenCookie, Value: validToken})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("allows request with query token", func(t *testing.T) {
		m := NewAuthMiddleware(resolver)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/test?token="+validToken, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("allows request with bearer header", func(t *testing.T) {
		m := NewAuthMiddleware(resolver)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects request without token", func(t *testing.T) {
		m := NewAuthMiddleware(resolver)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects request with invalid token", func(t *testing.T) {
		m := NewAuthMiddleware(resolver)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("GET", "/test", nil)
		req.AddCookie(&http.Cookie{Name: token.AccessTokenCookie, Value: "garbage"})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("returns 500 on database error", func(t *testing.T) {
		failing := &fakeResolver{
			resolveFunc: func(ctx context.Context, accessToken string) (*model.User, error) {
				return nil, apperrors.Database(context.DeadlineExceeded)
			},
		}
		m := NewAuthMiddleware(failing)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("GET", "/test", nil)
		req.AddCookie(&http.Cookie{Name: token.AccessTokenCookie, Value: validToken})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("cookie wins over query and header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test?token=from-query", nil)
		req.AddCookie(&http.Cookie{Name: token.AccessTokenCookie, Value: "from-cookie"})
		req.Header.Set("Authorization", "Bearer from-header")

		assert.Equal(t, "from-cookie", ExtractAccessToken(req))
	})
}

func TestGetUser(t *testing.T) {
	t.Run("returns user from context", func(t *testing.T) {
		user := &model.User{ID: 7, Nickname: "bob"}
		ctx := context.WithValue(context.Background(), UserContextKey, user)

		result := GetUser(ctx)

		require.NotNil(t, result)
		assert.Equal(t, int64(7), result.ID)
	})

	t.Run("returns nil when no user in context", func(t *testing.T) {
		result := GetUser(context.Background())
		assert.Nil(t, result)
	})
}
