package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fluffytime/chat-server-go/internal/audit"
	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
	"github.com/fluffytime/chat-server-go/internal/service"
	"github.com/fluffytime/chat-server-go/internal/token"
)

type AuthHandler struct {
	identity     *service.IdentityService
	tokenizer    *token.Tokenizer
	accessTTL    time.Duration
	isProduction bool
}

func NewAuthHandler(identity *service.IdentityService, tokenizer *token.Tokenizer, accessTTL time.Duration, isProduction bool) *AuthHandler {
	return &AuthHandler{
		identity:     identity,
		tokenizer:    tokenizer,
		accessTTL:    accessTTL,
		isProduction: isProduction,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/refresh", h.Refresh)

	return r
}

// POST /auth/refresh
// Reissues the access token cookie from a still-valid refresh token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(token.RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, apperrors.Unauthenticated())
		return
	}

	user, err := h.identity.ResolveRefreshToken(r.Context(), cookie.Value)
	if err != nil {
		log.Warn().Str("code", string(apperrors.GetCode(err))).Msg("refresh rejected")
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventAuthFailure,
			Details: map[string]interface{}{"code": string(apperrors.GetCode(err)), "flow": "refresh"},
		})
		writeError(w, err)
		return
	}

	accessToken, err := h.tokenizer.IssueAccessToken(user.ID, user.Email, user.Nickname, []string{"ROLE_USER"})
	if err != nil {
		log.Error().Err(err).Msg("failed to issue access token")
		writeError(w, apperrors.Internal("Failed to issue token"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     token.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventTokenRefresh,
		UserID: strconv.FormatInt(user.ID, 10),
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
