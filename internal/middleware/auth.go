package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fluffytime/chat-server-go/internal/audit"
	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
	"github.com/fluffytime/chat-server-go/internal/httputil"
	"github.com/fluffytime/chat-server-go/internal/model"
	"github.com/fluffytime/chat-server-go/internal/token"
)

type contextKey string

const UserContextKey contextKey = "user"

func GetUser(ctx context.Context) *model.User {
	if user, ok := ctx.Value(UserContextKey).(*model.User); ok {
		return user
	}
	return nil
}

// TokenResolver resolves a raw access token into the user who owns it.
type TokenResolver interface {
	ResolveToken(ctx context.Context, accessToken string) (*model.User, error)
}

type AuthMiddleware struct {
	identity TokenResolver
}

func NewAuthMiddleware(identity TokenResolver) *AuthMiddleware {
	return &AuthMiddleware{identity: identity}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := ExtractAccessToken(r)
		if raw == "" {
			httputil.WriteError(w, apperrors.Unauthenticated())
			return
		}

		user, err := m.identity.ResolveToken(r.Context(), raw)
		if err != nil {
			code := apperrors.GetCode(err)
			switch code {
			case apperrors.ErrCodeInternal, apperrors.ErrCodeDatabase:
				log.Error().Err(err).Msg("auth middleware: token resolution failed")
			case apperrors.ErrCodeTokenExpired:
				audit.LogFromRequest(r, audit.Event{Type: audit.EventTokenExpired})
			default:
				log.Warn().Str("code", string(code)).Msg("auth middleware: rejected token")
				audit.LogFromRequest(r, audit.Event{
					Type:    audit.EventAuthFailure,
					Details: map[string]interface{}{"code": string(code)},
				})
			}
			httputil.WriteError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractAccessToken pulls the access token from the request. The cookie is
// the primary carrier; the query parameter exists for EventSource clients,
// which cannot set headers, and a bearer header is accepted for API clients.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(token.AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if raw := r.URL.Query().Get("token"); raw != "" {
		return raw
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
