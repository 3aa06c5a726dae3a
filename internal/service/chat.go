package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
	"github.com/fluffytime/chat-server-go/internal/pubsub"
)

const (
	// emptyPreview keeps the preview list position-aligned with the room
	// list when a room has no messages yet.
	emptyPreview = " "

	// unknownSenderLabel replaces a sender whose account no longer resolves;
	// one dead sender must not sink the whole history fetch.
	unknownSenderLabel = "(unknown)"

	defaultAvatarPath = "/image/profile/profile.png"
)

// ChannelSubscriber attaches the shared listener to a room's channel.
type ChannelSubscriber interface {
	EnsureSubscribed(ctx context.Context, channelName string) error
}

// EnvelopePublisher puts a chat message on the bus.
type EnvelopePublisher interface {
	Publish(ctx context.Context, env pubsub.Envelope) error
}

type TopicListResult struct {
	Recipients []string `json:"recipient"`
	Rooms      []string `json:"chatRoomList"`
	Previews   []string `json:"recentChat"`
}

type TopicResult struct {
	RoomName string `json:"chatRoomName"`
	Success  bool   `json:"success"`
	Created  bool   `json:"created"`
}

type RecipientInfoResult struct {
	PetName   string `json:"petName"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl"`
}

type ChatLogResult struct {
	RoomName string   `json:"roomName"`
	Sender   string   `json:"sender"`
	Lines    []string `json:"chatLog"`
}

// ChatService orchestrates identity, rooms, the message log and the channel
// manager behind the five chat operations plus the send path.
type ChatService struct {
	identity  *IdentityService
	rooms     *RoomService
	messages  *MessageService
	subs      ChannelSubscriber
	publisher EnvelopePublisher
}

func NewChatService(
	identity *IdentityService,
	rooms *RoomService,
	messages *MessageService,
	subs ChannelSubscriber,
	publisher EnvelopePublisher,
) *ChatService {
	return &ChatService{
		identity:  identity,
		rooms:     rooms,
		messages:  messages,
		subs:      subs,
		publisher: publisher,
	}
}

// TopicList gathers the caller's counterpart nicknames, room names and
// per-room previews. The three lists are index-aligned: a room without
// messages gets the empty placeholder, never a missing entry.
func (s *ChatService) TopicList(ctx context.Context, accessToken string) (*TopicListResult, error) {
	user, err := s.identity.ResolveToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	counterpartIDs, err := s.rooms.OtherParticipants(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list counterparts: %w", err)
	}

	recipients := make([]string, 0, len(counterpartIDs))
	for _, id := range counterpartIDs {
		counterpart, err := s.identity.ResolveID(ctx, id)
		if err != nil {
			if apperrors.GetCode(err) == apperrors.ErrCodeUserNotFound {
				log.Warn().Int64("userId", id).Msg("counterpart no longer exists, skipping")
				continue
			}
			return nil, err
		}
		recipients = append(recipients, counterpart.Nickname)
	}

	roomNames, err := s.rooms.RoomsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	previews := make([]string, 0, len(roomNames))
	for _, roomName := range roomNames {
		preview, err := s.roomPreview(ctx, roomName)
		if err != nil {
			return nil, err
		}
		previews = append(previews, preview)
	}

	return &TopicListResult{
		Recipients: recipients,
		Rooms:      roomNames,
		Previews:   previews,
	}, nil
}

func (s *ChatService) roomPreview(ctx context.Context, roomName string) (string, error) {
	roomID, err := s.rooms.RoomID(ctx, roomName)
	if err != nil {
		return "", err
	}

	latest, err := s.messages.LatestForRoom(ctx, roomID)
	if err != nil {
		return "", fmt.Errorf("latest message: %w", err)
	}
	if latest == nil {
		return emptyPreview, nil
	}
	return latest.Content, nil
}

// CreateTopic resolves both participants, ensures their canonical room exists
// and attaches the room's channel. A bus failure fails the whole operation;
// the room record itself survives for the next attempt.
func (s *ChatService) CreateTopic(ctx context.Context, accessToken, counterpartNickname string) (*TopicResult, error) {
	caller, err := s.identity.ResolveToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	counterpart, err := s.identity.ResolveNickname(ctx, counterpartNickname)
	if err != nil {
		return nil, err
	}

	roomName, created, err := s.rooms.EnsureRoom(ctx, caller.ID, counterpart.ID)
	if err != nil {
		return nil, err
	}

	if err := s.subs.EnsureSubscribed(ctx, roomName); err != nil {
		return nil, err
	}

	return &TopicResult{RoomName: roomName, Success: true, Created: created}, nil
}

// JoinTopic attaches the channel for a room name the caller already obtained
// from TopicList or CreateTopic. No identity check, by the original contract.
func (s *ChatService) JoinTopic(ctx context.Context, roomName string) (*TopicResult, error) {
	if err := s.subs.EnsureSubscribed(ctx, roomName); err != nil {
		return nil, err
	}
	return &TopicResult{RoomName: roomName, Success: true}, nil
}

// RecipientInfo returns the profile card shown in the chat header.
func (s *ChatService) RecipientInfo(ctx context.Context, nickname string) (*RecipientInfoResult, error) {
	user, err := s.identity.ResolveNickname(ctx, nickname)
	if err != nil {
		return nil, err
	}

	info := &RecipientInfoResult{
		Nickname:  user.Nickname,
		AvatarURL: defaultAvatarPath,
	}
	if user.PetName != nil {
		info.PetName = *user.PetName
	}
	if user.AvatarPath != nil {
		info.AvatarURL = *user.AvatarPath
	}
	return info, nil
}

// ChatLog renders a room's full history as "<nickname> : <content>" lines.
// An empty room yields an empty slice, not an error.
func (s *ChatService) ChatLog(ctx context.Context, accessToken, roomName string) (*ChatLogResult, error) {
	roomID, err := s.rooms.RoomID(ctx, roomName)
	if err != nil {
		return nil, err
	}

	caller, err := s.identity.ResolveToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.AllForRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("room history: %w", err)
	}

	nicknames := make(map[string]string, 2)
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		label, ok := nicknames[msg.Sender]
		if !ok {
			label = s.senderLabel(ctx, msg.Sender)
			nicknames[msg.Sender] = label
		}
		lines = append(lines, fmt.Sprintf("%s : %s", label, msg.Content))
	}

	return &ChatLogResult{
		RoomName: roomName,
		Sender:   caller.Nickname,
		Lines:    lines,
	}, nil
}

func (s *ChatService) senderLabel(ctx context.Context, sender string) string {
	senderID, err := strconv.ParseInt(sender, 10, 64)
	if err != nil {
		log.Warn().Str("sender", sender).Msg("malformed sender id in message log")
		return unknownSenderLabel
	}

	user, err := s.identity.ResolveID(ctx, senderID)
	if err != nil {
		log.Warn().Int64("senderId", senderID).Msg("sender no longer resolves")
		return unknownSenderLabel
	}
	return user.Nickname
}

// SendMessage publishes a message on the room's channel. Persistence happens
// on the subscription side when the envelope comes back off the bus.
func (s *ChatService) SendMessage(ctx context.Context, accessToken, roomName, content string) error {
	caller, err := s.identity.ResolveToken(ctx, accessToken)
	if err != nil {
		return err
	}

	if _, err := s.rooms.RoomID(ctx, roomName); err != nil {
		return err
	}

	return s.publisher.Publish(ctx, pubsub.Envelope{
		RoomName: roomName,
		Sender:   strconv.FormatInt(caller.ID, 10),
		Content:  content,
	})
}
