package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"notebook-sync-be/internal/dto"
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/realtime"

	"github.com/google/uuid"
)

const clusterChannel = "cluster_events"

// clusterMessage targets the connections of one session on any instance.
type clusterMessage struct {
	Origin          string          `json:"origin"`
	TargetSessionID string          `json:"target_session_id"`
	Message         json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients: SessionID -> connections (several tabs share a session)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// Cross-instance delivery, nil when running alone
	broker     realtime.Broker
	instanceID string

	logger  logger.ILogger
	metrics *realtime.Metrics
}

func NewHub(broker realtime.Broker, instanceID string, log logger.ILogger, metrics *realtime.Metrics) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID][]*Client),
		broker:     broker,
		instanceID: instanceID,
		logger:     log,
		metrics:    metrics,
	}
}

// Run owns client registration until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	if h.broker != nil {
		go h.subscribeToCluster(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.WsClients.Inc()
			}
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID, "session_id": client.SessionID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			client.closeSend()
			if h.metrics != nil {
				h.metrics.WsClients.Dec()
			}
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Session has no more connections", map[string]interface{}{"session_id": client.SessionID})
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.clients {
		for _, c := range clients {
			c.closeSend()
			if h.metrics != nil {
				h.metrics.WsClients.Dec()
			}
		}
		delete(h.clients, id)
	}
}

// Register adds the client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// release schedules removal without blocking the caller, which may hold
// the hub lock's read side or run inside a listener callback.
func (h *Hub) release(client *Client) {
	select {
	case h.unregister <- client:
	default:
		go func() {
			select {
			case h.unregister <- client:
			case <-h.done:
			}
		}()
	}
}

// drop disconnects a client that cannot keep up.
func (h *Hub) drop(client *Client) {
	h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": client.UserID})
	client.stop()
	h.release(client)
}

// AuthStateChanged tells every connection of the session who is signed in.
// A nil user means the session signed out; those connections are closed
// after the message is flushed.
func (h *Hub) AuthStateChanged(sessionID uuid.UUID, user *dto.UserResponse) {
	var data interface{}
	if user != nil {
		data = user
	}
	msg, err := json.Marshal(dto.ServerMessage{Type: dto.MessageAuthState, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Encode auth state failed", map[string]interface{}{"error": err})
		return
	}

	h.deliver(sessionID, msg, user == nil)

	if h.broker != nil {
		payload, _ := json.Marshal(clusterMessage{
			Origin:          h.instanceID,
			TargetSessionID: sessionID.String(),
			Message:         msg,
		})
		if err := h.broker.Publish(context.Background(), clusterChannel, payload); err != nil {
			h.logger.Error("Hub", "Cluster publish failed", map[string]interface{}{"error": err})
		}
	}
}

func (h *Hub) deliver(sessionID uuid.UUID, msg []byte, signedOut bool) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[sessionID]...)
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.trySend(msg) {
			h.drop(client)
			continue
		}
		if signedOut {
			client.stop()
			h.release(client)
		}
	}
}

func (h *Hub) subscribeToCluster(ctx context.Context) {
	ch, closeSub := h.broker.Subscribe(ctx, clusterChannel)
	defer closeSub()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg), &payload); err != nil {
				h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			// Local delivery already happened on the publishing instance.
			if payload.Origin == h.instanceID {
				continue
			}
			sid, err := uuid.Parse(payload.TargetSessionID)
			if err != nil {
				continue
			}
			var inner dto.ServerMessage
			_ = json.Unmarshal(payload.Message, &inner)
			h.deliver(sid, payload.Message, inner.Type == dto.MessageAuthState && inner.Data == nil)
		}
	}
}

// ClientCount returns how many connections the session has on this instance.
func (h *Hub) ClientCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}
