// Package live runs one server-side view per open browser tab over a
// websocket and fans site-wide notices out to all of them.
package live

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/snap-point/gallery/guard"
	"github.com/snap-point/gallery/models"
)

type envelope struct {
	msg Outbound
	// follow, when set, may add a second message for a particular client.
	follow func(c *Client) (Outbound, bool)
}

// Hub tracks connected clients and broadcasts to them. It implements the
// session store's Notifier.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				c.closeSend()
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.drop(c)

		case env := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				ok := c.Deliver(env.msg)
				if ok && env.follow != nil {
					if extra, send := env.follow(c); send {
						ok = c.Deliver(extra)
					}
				}
				if !ok {
					h.log.Debug("dropping slow live client", zap.String("path", c.path))
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	c.closeSend()
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.closeSend()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.closeSend()
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) publish(env envelope) {
	select {
	case h.broadcast <- env:
	default:
		h.log.Warn("live broadcast dropped", zap.String("type", env.msg.Type))
	}
}

// Toast shows a notice in every open tab.
func (h *Hub) Toast(level, message string) {
	h.publish(envelope{msg: Outbound{
		Type:      MsgToast,
		Data:      Toast{Level: level, Message: message},
		Timestamp: time.Now(),
	}})
}

// SettingsChanged pushes new settings to every tab and moves tabs in or out
// of the maintenance page.
func (h *Hub) SettingsChanged(s models.SiteSettings) {
	h.publish(envelope{
		msg: Outbound{Type: MsgSettings, Data: s, Timestamp: time.Now()},
		follow: func(c *Client) (Outbound, bool) {
			switch {
			case s.MaintenanceMode && !guard.MaintenanceExempt(c.path, c.role):
				return Outbound{Type: MsgRedirect, Data: Redirect{To: guard.MaintenancePath}, Timestamp: time.Now()}, true
			case !s.MaintenanceMode && c.path == guard.MaintenancePath:
				return Outbound{Type: MsgRedirect, Data: Redirect{To: "/"}, Timestamp: time.Now()}, true
			}
			return Outbound{}, false
		},
	})
}
