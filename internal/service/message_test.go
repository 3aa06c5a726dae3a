package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffytime/chat-server-go/internal/model"
)

// memMessageRepo is an in-memory append-only log preserving insert order.
type memMessageRepo struct {
	mu     sync.Mutex
	msgs   []model.ChatMessage
	nextID int64
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{nextID: 1}
}

func (m *memMessageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := model.ChatMessage{
		ID:        m.nextID,
		RoomID:    params.RoomID,
		Sender:    params.Sender,
		Content:   params.Content,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.msgs = append(m.msgs, msg)
	return &msg, nil
}

func (m *memMessageRepo) FindByRoomID(ctx context.Context, roomID int64) ([]model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ChatMessage
	for _, msg := range m.msgs {
		if msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessageRepo) FindLatestByRoomID(ctx context.Context, roomID int64) (*model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].RoomID == roomID {
			msg := m.msgs[i]
			return &msg, nil
		}
	}
	return nil, nil
}

func (m *memMessageRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	return 0, nil
}

func TestAppendAndLatest(t *testing.T) {
	svc := NewMessageService(newMemMessageRepo())
	ctx := context.Background()

	t.Run("latest returns the just-appended content", func(t *testing.T) {
		_, err := svc.Append(ctx, 1, "1", "first")
		require.NoError(t, err)

		latest, err := svc.LatestForRoom(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "first", latest.Content)

		_, err = svc.Append(ctx, 1, "2", "second")
		require.NoError(t, err)

		latest, err = svc.LatestForRoom(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "second", latest.Content)
	})

	t.Run("latest is nil for an empty room", func(t *testing.T) {
		latest, err := svc.LatestForRoom(ctx, 99)
		require.NoError(t, err)
		assert.Nil(t, latest)
	})

	t.Run("empty content is a legitimate message", func(t *testing.T) {
		msg, err := svc.Append(ctx, 2, "1", "")
		require.NoError(t, err)
		assert.Equal(t, "", msg.Content)

		latest, err := svc.LatestForRoom(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "", latest.Content)
	})
}

func TestAllForRoomPreservesAppendOrder(t *testing.T) {
	svc := NewMessageService(newMemMessageRepo())
	ctx := context.Background()

	const k = 25
	for i := 0; i < k; i++ {
		_, err := svc.Append(ctx, 7, "1", fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	msgs, err := svc.AllForRoom(ctx, 7)
	require.NoError(t, err)
	require.Len(t, msgs, k)
	for i, msg := range msgs {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Content)
	}
}

func TestAllForRoomEmpty(t *testing.T) {
	svc := NewMessageService(newMemMessageRepo())

	msgs, err := svc.AllForRoom(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
