package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"notebook-sync-be/internal/dto"
	"notebook-sync-be/internal/entity"
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/pkg/serverutils"
	"notebook-sync-be/internal/realtime"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256

	// Client messages allowed per second, with room for a burst on connect.
	messageRate  = 20
	messageBurst = 40
)

// Conn is the part of a websocket connection the client pumps use.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn Conn

	UserID    uuid.UUID
	SessionID uuid.UUID

	// Buffered channel of outbound messages, closed by the hub only.
	send chan []byte

	listeners realtime.IListenerService
	logger    logger.ILogger
	limiter   *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	watches map[uuid.UUID]realtime.Unsubscribe
	list    realtime.Unsubscribe
}

func NewClient(hub *Hub, conn Conn, userID, sessionID uuid.UUID, listeners realtime.IListenerService, log logger.ILogger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:       hub,
		conn:      conn,
		UserID:    userID,
		SessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
		listeners: listeners,
		logger:    log,
		limiter:   rate.NewLimiter(rate.Limit(messageRate), messageBurst),
		ctx:       ctx,
		cancel:    cancel,
		watches:   make(map[uuid.UUID]realtime.Unsubscribe),
	}
}

func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// stop cancels every listener the client holds without waiting for them.
func (c *Client) stop() {
	c.cancel()
}

func (c *Client) write(msg dto.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Client", "Encode message failed", map[string]interface{}{"error": err, "type": msg.Type})
		return
	}
	if !c.trySend(payload) {
		c.hub.drop(c)
	}
}

func (c *Client) writeError(notebookID *uuid.UUID, message string) {
	c.write(dto.ServerMessage{Type: dto.MessageError, NotebookId: notebookID, Message: message})
}

// start sends the current auth state and the user's notebook list.
func (c *Client) start(user *dto.UserResponse) error {
	c.write(dto.ServerMessage{Type: dto.MessageAuthState, Data: user})

	unsub, err := c.listeners.ListenToUserNotebooks(c.ctx, c.UserID, func(snapshots []*entity.NotebookSnapshot) {
		c.write(dto.ServerMessage{Type: dto.MessageNotebooks, Data: dto.NewNotebookListResponse(snapshots)})
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.list = unsub
	c.mu.Unlock()
	return nil
}

func (c *Client) handle(raw []byte) {
	if !c.limiter.Allow() {
		c.writeError(nil, "Too many messages, slow down")
		return
	}

	var msg dto.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.writeError(nil, "Malformed message")
		return
	}
	if err := serverutils.ValidateRequest(&msg); err != nil {
		c.writeError(nil, "Unknown action or missing notebook_id")
		return
	}

	switch msg.Action {
	case dto.ActionWatch:
		c.watch(msg.NotebookId)
	case dto.ActionUnwatch:
		c.unwatch(msg.NotebookId)
	}
}

func (c *Client) watch(notebookID uuid.UUID) {
	c.mu.Lock()
	_, watching := c.watches[notebookID]
	c.mu.Unlock()
	if watching {
		return
	}

	id := notebookID
	unsub, err := c.listeners.ListenToNotebook(c.ctx, c.UserID, notebookID, func(snapshot *entity.NotebookSnapshot) {
		// nil data means the notebook no longer exists
		c.write(dto.ServerMessage{Type: dto.MessageNotebook, NotebookId: &id, Data: dto.NewNotebookResponse(snapshot)})
	})
	if err != nil {
		c.logger.Error("Client", "Watch notebook failed", map[string]interface{}{"error": err, "notebook_id": notebookID, "user_id": c.UserID})
		c.writeError(&id, "Could not watch notebook")
		return
	}

	c.mu.Lock()
	c.watches[notebookID] = unsub
	c.mu.Unlock()
}

func (c *Client) unwatch(notebookID uuid.UUID) {
	c.mu.Lock()
	unsub, ok := c.watches[notebookID]
	delete(c.watches, notebookID)
	c.mu.Unlock()
	if ok {
		unsub()
	}
}

// teardown releases every listener and waits for them to exit.
func (c *Client) teardown() {
	c.cancel()

	c.mu.Lock()
	unsubs := make([]realtime.Unsubscribe, 0, len(c.watches)+1)
	for id, unsub := range c.watches {
		unsubs = append(unsubs, unsub)
		delete(c.watches, id)
	}
	if c.list != nil {
		unsubs = append(unsubs, c.list)
		c.list = nil
	}
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// readPump handles watch requests until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.teardown()
		c.hub.release(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Client", "Unexpected close", map[string]interface{}{"error": err.Error(), "user_id": c.UserID})
			}
			return
		}
		c.handle(raw)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs runs a connection until it closes. The caller's goroutine runs
// the read side.
func ServeWs(hub *Hub, conn Conn, userID, sessionID uuid.UUID, user *dto.UserResponse, listeners realtime.IListenerService, log logger.ILogger) {
	client := NewClient(hub, conn, userID, sessionID, listeners, log)
	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()

	if err := client.start(user); err != nil {
		log.Error("Client", "Start notebook list failed", map[string]interface{}{"error": err, "user_id": userID})
		client.writeError(nil, "Could not load notebooks")
	}
	client.readPump()
}
