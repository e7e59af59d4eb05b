package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 64
)

// Client is one websocket connection and the view it drives.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	path string
	role models.Role
	view *View
	log  *zap.Logger

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, path string, role models.Role) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		path: path,
		role: role,
		log:  hub.log,
	}
}

// Deliver queues msg for the browser. It is safe to call after the client
// has gone away.
func (c *Client) Deliver(msg Outbound) bool {
	b, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("live message not encodable", zap.String("type", msg.Type), zap.Error(err))
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
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

// Serve runs a live view on conn for the page at path until the browser
// disconnects. sess is nil for anonymous visitors.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, sess *session.Session, path string, deps Deps) {
	role := models.RoleNone
	if sess != nil {
		role = sess.Role
	}
	c := newClient(h, conn, path, role)
	c.view = NewView(ctx, c, sess, deps)

	h.Register(c)
	go c.writePump()
	c.readPump()
	c.view.Close()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("live connection closed", zap.Error(err))
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debug("invalid live message", zap.Error(err))
			continue
		}
		c.view.Handle(msg)
	}
}

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
