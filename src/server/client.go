package server

import (
	"sync"
	"time"

	"market-streamer/src/logger"
	"market-streamer/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024 // 50 symbols of 10 chars fit comfortably
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client adapts a gorilla connection to the hub's Conn interface.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	logger *logger.Logger

	mu     sync.Mutex
	send   chan models.Outbound
	closed bool
}

func newClient(id string, hub *Hub, conn *websocket.Conn, buffer int, log *logger.Logger) *Client {
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		logger: log,
		send:   make(chan models.Outbound, buffer),
	}
}

func (c *Client) ID() string { return c.id }

// Send never blocks; it fails when the buffer is full or the client is closed.
func (c *Client) Send(msg models.Outbound) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close ends the write pump, which sends a close frame and closes the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Info("WebSocket error for %s: %v", c.id, err)
			}
			break
		}
		c.hub.HandleMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Info("Write error for %s: %v", c.id, err)
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
