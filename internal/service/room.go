package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
	"github.com/fluffytime/chat-server-go/internal/model"
	"github.com/fluffytime/chat-server-go/internal/repository"
)

const roomNamePrefix = "chat_"

// RoomName derives the canonical room name for a participant pair. The lower
// id always comes first, so both initiators land on the same name. Every
// lookup and insert goes through this function; nothing else may build names.
func RoomName(a, b int64) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s%d_%d", roomNamePrefix, a, b)
}

// RoomTxRunner runs a function against a RoomRepository inside one database
// transaction. repository.NewRoomTxRunner provides the sqlx-backed one.
type RoomTxRunner interface {
	InTx(ctx context.Context, fn func(repository.RoomRepository) error) error
}

// RoomService is the registry of two-party rooms.
type RoomService struct {
	repo repository.RoomRepository
	tx   RoomTxRunner
}

func NewRoomService(repo repository.RoomRepository, tx RoomTxRunner) *RoomService {
	return &RoomService{repo: repo, tx: tx}
}

// EnsureRoom returns the canonical room for the pair, creating it on first
// contact. Concurrent calls for the same pair are settled by the unique
// constraint on room_name: the insert conflicts instead of erroring, so the
// transaction stays open and the loser re-reads the winner's committed row.
func (s *RoomService) EnsureRoom(ctx context.Context, idA, idB int64) (string, bool, error) {
	name := RoomName(idA, idB)
	lo, hi := idA, idB
	if hi < lo {
		lo, hi = hi, lo
	}

	var created bool
	err := s.tx.InTx(ctx, func(repo repository.RoomRepository) error {
		existing, err := repo.FindByName(ctx, name)
		if err != nil {
			return fmt.Errorf("find room: %w", err)
		}
		if existing != nil {
			return nil
		}

		_, err = repo.Create(ctx, model.CreateRoomParams{
			RoomName: name,
			UserID1:  lo,
			UserID2:  hi,
		})
		if errors.Is(err, repository.ErrRoomNameTaken) {
			// Lost the race. Under READ COMMITTED each statement sees a
			// fresh snapshot, so the winner's row is visible here.
			winner, err := repo.FindByName(ctx, name)
			if err != nil {
				return fmt.Errorf("refetch room after lost race: %w", err)
			}
			if winner == nil {
				return fmt.Errorf("room %s missing after lost insert race", name)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return "", false, err
	}

	if created {
		log.Info().Str("roomName", name).Msg("chat room created")
	} else {
		log.Debug().Str("roomName", name).Msg("existing chat room reused")
	}

	return name, created, nil
}

// RoomID resolves a room name to its surrogate key.
func (s *RoomService) RoomID(ctx context.Context, roomName string) (int64, error) {
	room, err := s.repo.FindByName(ctx, roomName)
	if err != nil {
		return 0, fmt.Errorf("find room: %w", err)
	}
	if room == nil {
		return 0, apperrors.RoomNotFound(roomName)
	}
	return room.ID, nil
}

func (s *RoomService) RoomsForUser(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.RoomNamesForUser(ctx, userID)
}

func (s *RoomService) OtherParticipants(ctx context.Context, userID int64) ([]int64, error) {
	return s.repo.OtherParticipants(ctx, userID)
}

// DeleteRoomsForUser removes every room the user participates in. Called when
// the account service reports a deletion.
func (s *RoomService) DeleteRoomsForUser(ctx context.Context, userID int64) (int64, error) {
	count, err := s.repo.DeleteForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete rooms for user: %w", err)
	}
	if count > 0 {
		log.Info().Int64("userId", userID).Int64("count", count).Msg("rooms deleted for user")
	}
	return count, nil
}
