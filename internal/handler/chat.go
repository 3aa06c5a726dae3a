package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fluffytime/chat-server-go/internal/audit"
	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
	"github.com/fluffytime/chat-server-go/internal/middleware"
	"github.com/fluffytime/chat-server-go/internal/service"
	"github.com/fluffytime/chat-server-go/internal/util"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// chi requires one wildcard name per segment, so both topic routes share
	// {target}: a nickname on PUT, a room name on GET.
	r.Get("/topics", h.TopicList)
	r.Put("/topics/{target}", h.CreateTopic)
	r.Get("/topics/{target}", h.JoinTopic)
	r.Get("/recipient/{nickname}", h.RecipientInfo)
	r.Get("/log/{roomName}", h.ChatLog)
	r.Post("/messages/{roomName}", h.SendMessage)

	return r
}

// GET /chat/topics
// Lists the caller's conversations: counterpart nicknames, room names and the
// latest message preview per room, index-aligned.
func (h *ChatHandler) TopicList(w http.ResponseWriter, r *http.Request) {
	result, err := h.chatService.TopicList(r.Context(), middleware.ExtractAccessToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// PUT /chat/topics/{nickname}
// Opens (or reuses) the one-to-one room with the named user and attaches the
// server to its channel.
func (h *ChatHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	nickname := chi.URLParam(r, "target")
	if err := util.ValidateNickname(nickname); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.chatService.CreateTopic(r.Context(), middleware.ExtractAccessToken(r), nickname)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Created {
		audit.LogFromRequest(r, audit.Event{
			Type:     audit.EventRoomCreate,
			RoomName: result.RoomName,
			Details:  map[string]interface{}{"counterpart": nickname},
		})
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /chat/topics/{roomName}
// Attaches the server to an existing room's channel.
func (h *ChatHandler) JoinTopic(w http.ResponseWriter, r *http.Request) {
	roomName := chi.URLParam(r, "target")
	if err := util.ValidateRoomName(roomName); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.chatService.JoinTopic(r.Context(), roomName)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventRoomJoin, RoomName: roomName})

	writeJSON(w, http.StatusOK, result)
}

// GET /chat/recipient/{nickname}
func (h *ChatHandler) RecipientInfo(w http.ResponseWriter, r *http.Request) {
	nickname := chi.URLParam(r, "nickname")
	if err := util.ValidateNickname(nickname); err != nil {
		writeError(w, err)
		return
	}

	info, err := h.chatService.RecipientInfo(r.Context(), nickname)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// GET /chat/log/{roomName}
func (h *ChatHandler) ChatLog(w http.ResponseWriter, r *http.Request) {
	roomName := chi.URLParam(r, "roomName")
	if err := util.ValidateRoomName(roomName); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.chatService.ChatLog(r.Context(), middleware.ExtractAccessToken(r), roomName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /chat/messages/{roomName}
// Publishes a message to the room's channel. Persistence happens on the
// subscriber side so every relay instance stores the same log.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomName := chi.URLParam(r, "roomName")
	if err := util.ValidateRoomName(roomName); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	if err := h.chatService.SendMessage(r.Context(), middleware.ExtractAccessToken(r), roomName, req.Content); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}
