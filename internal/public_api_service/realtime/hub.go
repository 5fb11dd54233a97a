// Package realtime bridges persisted chat messages to connected WebSocket
// clients. The chat service publishes every stored message on its
// conversation's NATS subject; the hub subscribes across conversations and
// fans each event out to the sockets watching that conversation.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	chatdomain "github.com/casafacile/golang_services/internal/chat_service/domain"
	"github.com/casafacile/golang_services/internal/platform/messagebroker"
	"github.com/casafacile/golang_services/internal/public_api_service/middleware"
)

const (
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// client is one connected socket. The mutex serializes writes: the fan-out
// and the ping loop both write to the connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// Hub tracks which sockets watch which conversation and feeds them from the
// NATS chat subject.
type Hub struct {
	natsClient     *messagebroker.NatsClient
	logger         *slog.Logger
	allowedOrigins []string
	jwtSecret      string

	mu            sync.RWMutex
	conversations map[uuid.UUID]map[*client]struct{}
}

// NewHub creates a new Hub instance.
func NewHub(natsClient *messagebroker.NatsClient, jwtSecret string, allowedOrigins []string, logger *slog.Logger) *Hub {
	return &Hub{
		natsClient:     natsClient,
		logger:         logger.With("component", "realtime_hub"),
		allowedOrigins: allowedOrigins,
		jwtSecret:      jwtSecret,
		conversations:  make(map[uuid.UUID]map[*client]struct{}),
	}
}

// Start subscribes to the chat subject and fans events out until ctx is
// cancelled.
func (h *Hub) Start(ctx context.Context) error {
	sub, err := h.natsClient.Subscribe(chatdomain.MessageSubjectWildcard, func(msg *nats.Msg) {
		var event chatdomain.MessageEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			h.logger.Error("Failed to decode message event", "error", err, "subject", msg.Subject)
			return
		}
		h.dispatch(event)
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			h.logger.Error("Failed to drain realtime subscription", "error", err)
		}
	}()
	return nil
}

// dispatch delivers one event to every socket watching its conversation.
// Failed writes close the socket; the reader goroutine then unregisters it.
func (h *Hub) dispatch(event chatdomain.MessageEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal message event", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.conversations[event.ConversationID]))
	for c := range h.conversations[event.ConversationID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("Realtime write failed, closing socket",
				"conversation_id", event.ConversationID, "error", err)
			c.conn.Close()
		}
	}
}

func (h *Hub) register(conversationID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conversations[conversationID] == nil {
		h.conversations[conversationID] = make(map[*client]struct{})
	}
	h.conversations[conversationID][c] = struct{}{}
}

func (h *Hub) unregister(conversationID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conversations[conversationID], c)
	if len(h.conversations[conversationID]) == 0 {
		delete(h.conversations, conversationID)
	}
}

// upgrader is initialized per-request to use the instance's allowed origins.
func (h *Hub) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no origin.
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("Websocket origin rejected", "origin", origin)
			return false
		},
	}
}

// ServeConversation upgrades GET /ws/conversations/{conversationID}. Browsers
// cannot set headers on a WebSocket handshake, so the access token arrives as
// a query parameter.
func (h *Hub) ServeConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	authUser, err := middleware.ValidateToken(h.jwtSecret, token)
	if err != nil {
		h.logger.Warn("Websocket token validation failed", "error", err)
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: ws}
	h.register(conversationID, c)
	h.logger.Debug("Websocket client connected",
		"conversation_id", conversationID, "user_id", authUser.ID)

	defer func() {
		h.unregister(conversationID, c)
		ws.Close()
	}()

	// Heartbeat ping to keep the connection alive through proxies.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				_ = ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout))
				c.mu.Unlock()
			case <-done:
				return
			}
		}
	}()

	// The socket is server-to-client only; the read loop just consumes
	// control frames and detects the close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Websocket closed unexpectedly", "conversation_id", conversationID, "error", err)
			}
			return
		}
	}
}
