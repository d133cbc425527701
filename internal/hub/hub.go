// Package hub pushes updates to the UI renderers connected over websocket.
// Every frame is the message type, a newline, then the json payload.
package hub

import (
	"chatapp-client/internal/snowflake"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 32
)

type Client struct {
	UserID    string
	SessionID string
	Conn      *websocket.Conn
	send      chan []byte
	cancel    context.CancelFunc
}

type Hub struct {
	sugar        *zap.SugaredLogger
	ids          *snowflake.Node
	clients      map[string]*Client
	clientsMutex sync.RWMutex
	upgrader     websocket.Upgrader
}

func New(sugar *zap.SugaredLogger, ids *snowflake.Node, allowedOrigins []string) *Hub {
	return &Hub{
		sugar:   sugar,
		ids:     ids,
		clients: make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if !AllowedOrigin(origin, allowedOrigins) {
					sugar.Warnf("Refused websocket from origin [%s]", origin)
					return false
				}
				return true
			},
		},
	}
}

// HandleClient upgrades the request and keeps the connection registered until
// the renderer goes away.
func (h *Hub) HandleClient(userID string, w http.ResponseWriter, r *http.Request) {
	h.sugar.Debugf("Connecting user ID [%s] to WebSocket", userID)

	sessionID, err := h.ids.Next()
	if err != nil {
		h.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already answered the request
		h.sugar.Debug(err)
		return
	}
	defer conn.Close()

	clientCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &Client{
		UserID:    userID,
		SessionID: sessionID,
		Conn:      conn,
		send:      make(chan []byte, sendBuffer),
		cancel:    cancel,
	}

	h.setClient(client)
	defer h.deleteClient(sessionID)

	// writing queued messages to the renderer
	go func() {
		for {
			select {
			case <-clientCtx.Done():
				return
			case message := <-client.send:
				err := conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err == nil {
					err = conn.WriteMessage(websocket.TextMessage, message)
				}
				if err != nil {
					h.sugar.Debug(err)
					cancel()
					conn.Close()
					return
				}
			}
		}
	}()

	// renderers don't send anything, reading only notices the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.sugar.Debug(err)
			break
		}
	}
}

func (h *Hub) setClient(client *Client) {
	h.sugar.Debugf("Adding user ID [%s] to clients as session ID [%s]", client.UserID, client.SessionID)
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	h.clients[client.SessionID] = client
}

func (h *Hub) deleteClient(sessionID string) {
	h.sugar.Debugf("Removing session ID [%s] from clients", sessionID)
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	delete(h.clients, sessionID)
}

func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

func PrepareMessage(messageType string, messageToSend any) ([]byte, error) {
	jsonBytes, err := json.Marshal(messageToSend)
	if err != nil {
		return nil, err
	}

	message := make([]byte, 0, len(messageType)+1+len(jsonBytes))
	message = append(message, messageType...)
	message = append(message, '\n')
	message = append(message, jsonBytes...)
	return message, nil
}

// Broadcast queues the message for every connected renderer.
func (h *Hub) Broadcast(messageType string, payload any) error {
	return h.emit(messageType, payload, func(*Client) bool { return true })
}

// SendToUser queues the message for the renderers of one user.
func (h *Hub) SendToUser(userID string, messageType string, payload any) error {
	return h.emit(messageType, payload, func(c *Client) bool { return c.UserID == userID })
}

func (h *Hub) emit(messageType string, payload any, target func(*Client) bool) error {
	message, err := PrepareMessage(messageType, payload)
	if err != nil {
		return err
	}

	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	for _, client := range h.clients {
		if !target(client) {
			continue
		}
		select {
		case client.send <- message:
		default:
			h.sugar.Warnf("Session ID [%s] is too slow, disconnecting it", client.SessionID)
			client.cancel()
			client.Conn.Close()
		}
	}
	return nil
}

// Close disconnects every renderer.
func (h *Hub) Close() {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	for _, client := range h.clients {
		client.cancel()
		client.Conn.Close()
	}
}
