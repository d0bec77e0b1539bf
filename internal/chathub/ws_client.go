package chathub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"interviewhub/backend/internal/auth"
	"interviewhub/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Far above any envelope the pipeline accepts, so oversized content is
	// rejected as a validation error instead of closing the socket with 1009.
	maxMessageSize = 1 << 20
	sendBufferSize = 256
)

// WebSocketClient реалізує інтерфейс chathub.Client поверх gorilla/websocket.
type WebSocketClient struct {
	ConnID   string
	Identity auth.Identity
	Conn     *websocket.Conn
	Hub      *ManagerService

	send chan models.Event
	log  *zap.Logger

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

func NewWebSocketClient(conn *websocket.Conn, hub *ManagerService, id auth.Identity) *WebSocketClient {
	connID := uuid.NewString()
	return &WebSocketClient{
		ConnID:   connID,
		Identity: id,
		Conn:     conn,
		Hub:      hub,
		send:     make(chan models.Event, sendBufferSize),
		log:      hub.log.With(zap.String("conn_id", connID), zap.String("user_id", id.UserID)),
	}
}

func (c *WebSocketClient) GetConnID() string { return c.ConnID }
func (c *WebSocketClient) GetUserID() string { return c.Identity.UserID }
func (c *WebSocketClient) GetRole() string   { return c.Identity.Role }

func (c *WebSocketClient) Send(ev models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал; writePump надішле close-фрейм і завершиться.
func (c *WebSocketClient) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

func (c *WebSocketClient) closeFrame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeReason)
}

// readPump обробляє вхідні кадри по одному: усі події одного з'єднання
// виконуються послідовно в цій горутині.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ctx := context.Background()
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("error reading message", zap.Error(err))
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			c.log.Debug("malformed frame", zap.Error(err))
			c.Hub.replyError(c, "", "", fmt.Errorf("%w: malformed frame", ErrValidation))
			continue
		}
		c.Hub.HandleEvent(ctx, c, env)
	}
}

// writePump пише кожну подію окремим текстовим кадром і надсилає ping.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, c.closeFrame())
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
