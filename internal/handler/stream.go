package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
	"github.com/fluffytime/chat-server-go/internal/middleware"
	"github.com/fluffytime/chat-server-go/internal/pubsub"
	"github.com/fluffytime/chat-server-go/internal/util"
)

// StreamHandler delivers room messages to browsers over SSE. The route must
// sit behind the auth middleware so GetUser is populated.
type StreamHandler struct {
	manager *pubsub.Manager
}

func NewStreamHandler(manager *pubsub.Manager) *StreamHandler {
	return &StreamHandler{manager: manager}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthenticated())
		return
	}

	roomName := chi.URLParam(r, "roomName")
	if err := util.ValidateRoomName(roomName); err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	if err := h.manager.EnsureSubscribed(r.Context(), roomName); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.manager.Register(roomName)
	defer h.manager.Unregister(client)

	log.Info().
		Str("roomName", roomName).
		Str("nickname", user.Nickname).
		Msg("sse connection established")

	h.sendEvent(w, flusher, "connected", map[string]string{
		"roomName": roomName,
		"nickname": user.Nickname,
	})

	heartbeat := time.NewTicker(pubsub.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("roomName", roomName).Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().Str("roomName", roomName).Msg("sse connection closed by server")
			return

		case env := <-client.Events:
			if err := h.sendEvent(w, flusher, "message", env); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().Str("roomName", roomName).Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *StreamHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
