package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fluffytime/chat-server-go/internal/model"
)

type countingRoomRepo struct {
	orphanCount int64
	calls       atomic.Int64
}

func (m *countingRoomRepo) FindByName(ctx context.Context, roomName string) (*model.ChatRoom, error) {
	return nil, nil
}

func (m *countingRoomRepo) Create(ctx context.Context, params model.CreateRoomParams) (*model.ChatRoom, error) {
	return nil, nil
}

func (m *countingRoomRepo) RoomNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	return nil, nil
}

func (m *countingRoomRepo) OtherParticipants(ctx context.Context, userID int64) ([]int64, error) {
	return nil, nil
}

func (m *countingRoomRepo) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func (m *countingRoomRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	m.calls.Add(1)
	return m.orphanCount, nil
}

type countingMessageRepo struct {
	orphanCount int64
	calls       atomic.Int64
}

func (m *countingMessageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.ChatMessage, error) {
	return nil, nil
}

func (m *countingMessageRepo) FindByRoomID(ctx context.Context, roomID int64) ([]model.ChatMessage, error) {
	return nil, nil
}

func (m *countingMessageRepo) FindLatestByRoomID(ctx context.Context, roomID int64) (*model.ChatMessage, error) {
	return nil, nil
}

func (m *countingMessageRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	m.calls.Add(1)
	return m.orphanCount, nil
}

func TestCleanupJob(t *testing.T) {
	t.Run("creates job with correct interval", func(t *testing.T) {
		job := NewCleanupJob(nil, nil, 5*time.Minute)

		assert.NotNil(t, job)
		assert.Equal(t, 5*time.Minute, job.interval)
	})

	t.Run("runs cleanup on start", func(t *testing.T) {
		roomRepo := &countingRoomRepo{orphanCount: 2}
		messageRepo := &countingMessageRepo{orphanCount: 5}

		job := NewCleanupJob(roomRepo, messageRepo, 1*time.Hour)

		job.Start()
		time.Sleep(50 * time.Millisecond)
		job.Stop()

		assert.Equal(t, int64(1), roomRepo.calls.Load())
		assert.Equal(t, int64(1), messageRepo.calls.Load())
	})

	t.Run("ticks until stopped", func(t *testing.T) {
		roomRepo := &countingRoomRepo{}
		messageRepo := &countingMessageRepo{}

		job := NewCleanupJob(roomRepo, messageRepo, 20*time.Millisecond)

		job.Start()
		time.Sleep(70 * time.Millisecond)
		job.Stop()

		assert.GreaterOrEqual(t, roomRepo.calls.Load(), int64(2))
	})
}
