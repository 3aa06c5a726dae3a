package pubsub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/fluffytime/chat-server-go/internal/errors"
)

const (
	HeartbeatInterval = 30 * time.Second

	clientBufferSize = 100
)

// Envelope is the wire format of one chat message on the bus. Sender is the
// string-encoded user id; timestamps are assigned at persistence time, not
// here.
type Envelope struct {
	RoomName string `json:"roomName"`
	Sender   string `json:"sender"`
	Content  string `json:"content"`
}

// Handler receives every envelope arriving on an attached channel. The
// manager calls it before fanning out to live clients; main wires it to the
// message log.
type Handler func(ctx context.Context, env Envelope)

// Client is one live connection observing a room.
type Client struct {
	RoomName string
	Events   chan Envelope
	Done     chan struct{}
}

// Manager owns the process-wide channel subscriptions. A channel is attached
// at most once, on first contact with its room, and stays attached for the
// process lifetime. Attached-state is the only shared mutable structure in
// the subsystem; everything goes through the mutex.
type Manager struct {
	bus     Bus
	handler Handler

	mu       sync.Mutex
	attached map[string]Subscription

	cmu     sync.RWMutex
	clients map[string]map[*Client]bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(bus Bus, handler Handler) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		bus:      bus,
		handler:  handler,
		attached: make(map[string]Subscription),
		clients:  make(map[string]map[*Client]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// EnsureSubscribed attaches the shared listener to channelName. Attaching an
// already-attached channel is a no-op. A bus failure surfaces as
// BUS_UNAVAILABLE so callers can fail the room join loudly.
func (m *Manager) EnsureSubscribed(ctx context.Context, channelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.attached[channelName]; ok {
		return nil
	}

	sub, err := m.bus.Subscribe(ctx, channelName)
	if err != nil {
		return apperrors.BusUnavailable(err)
	}

	m.attached[channelName] = sub
	go m.listen(channelName, sub)

	log.Info().Str("channel", channelName).Msg("channel listener attached")
	return nil
}

// Subscribed reports whether the channel currently has a listener.
func (m *Manager) Subscribed(channelName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.attached[channelName]
	return ok
}

// Publish sends an envelope on its room's channel.
func (m *Manager) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if err := m.bus.Publish(ctx, env.RoomName, data); err != nil {
		return apperrors.BusUnavailable(err)
	}
	return nil
}

func (m *Manager) listen(channelName string, sub Subscription) {
	ch := sub.Channel()

	for {
		select {
		case <-m.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Error().Err(err).Str("channel", channelName).Msg("failed to unmarshal envelope")
				continue
			}

			if m.handler != nil {
				m.handler(m.ctx, env)
			}
			m.broadcast(channelName, env)
		}
	}
}

// Register adds a live client for a room. The caller must already have
// ensured the room's channel is attached.
func (m *Manager) Register(roomName string) *Client {
	client := &Client{
		RoomName: roomName,
		Events:   make(chan Envelope, clientBufferSize),
		Done:     make(chan struct{}),
	}

	m.cmu.Lock()
	if m.clients[roomName] == nil {
		m.clients[roomName] = make(map[*Client]bool)
	}
	m.clients[roomName][client] = true
	clientCount := len(m.clients[roomName])
	m.cmu.Unlock()

	log.Info().
		Str("roomName", roomName).
		Int("clientCount", clientCount).
		Msg("stream client registered")

	return client
}

func (m *Manager) Unregister(client *Client) {
	m.cmu.Lock()
	defer m.cmu.Unlock()

	if clients, ok := m.clients[client.RoomName]; ok {
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(m.clients, client.RoomName)
		}

		log.Info().
			Str("roomName", client.RoomName).
			Int("clientCount", len(clients)).
			Msg("stream client unregistered")
	}
}

func (m *Manager) broadcast(roomName string, env Envelope) {
	// Snapshot the recipients under the lock; Unregister mutates the map
	// concurrently, so iterating it after the unlock is not safe.
	m.cmu.RLock()
	clients := make([]*Client, 0, len(m.clients[roomName]))
	for client := range m.clients[roomName] {
		clients = append(clients, client)
	}
	m.cmu.RUnlock()

	for _, client := range clients {
		select {
		case client.Events <- env:
		default:
			log.Warn().
				Str("roomName", roomName).
				Msg("client event buffer full, dropping message")
		}
	}
}

// ClientCount returns the number of live clients observing a room.
func (m *Manager) ClientCount(roomName string) int {
	m.cmu.RLock()
	defer m.cmu.RUnlock()
	return len(m.clients[roomName])
}

// Close detaches every channel and drops every client. Only called on
// shutdown; subscriptions are never released individually.
func (m *Manager) Close() {
	m.cancel()

	m.mu.Lock()
	for name, sub := range m.attached {
		if err := sub.Close(); err != nil {
			log.Warn().Err(err).Str("channel", name).Msg("failed to close subscription")
		}
	}
	m.attached = make(map[string]Subscription)
	m.mu.Unlock()

	m.cmu.Lock()
	defer m.cmu.Unlock()
	for _, clients := range m.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	m.clients = make(map[string]map[*Client]bool)
}
