// Package ws pushes dashboard redraws to browser viewers over websockets.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/okian/slopewatch/internal/adapters/render"
	"github.com/okian/slopewatch/pkg/logger"
	"github.com/okian/slopewatch/pkg/metrics"
)

const broadcastBuffer = 256

// Hub keeps the set of connected viewers and fans redraws out to them.
type Hub struct {
	upgrader websocket.Upgrader
	boards   []*render.Board
	logger   logger.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu      sync.RWMutex
	done    chan struct{}
	clients map[*Client]struct{}
}

// Option applies a configuration option to a Hub.
type Option func(*Hub)

// WithBoards makes the hub greet new viewers with the current state of the
// given boards.
func WithBoards(boards ...*render.Board) Option {
	return func(h *Hub) {
		for _, b := range boards {
			if b != nil {
				h.boards = append(h.boards, b)
			}
		}
	}
}

// WithCheckOrigin overrides the upgrader origin check. All origins are
// accepted by default.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("ws")
	}
	return h
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client. A stopped hub may be run again.
func (h *Hub) Run(ctx context.Context) {
	done := make(chan struct{})
	h.mu.Lock()
	h.done = done
	h.mu.Unlock()
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			metrics.UpdateWSClients(0)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.UpdateWSClients(n)
			h.logger.Debug(ctx, "websocket client registered", logger.String("client", c.id), logger.Int("clients", n))
			h.greet(ctx, c)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.UpdateWSClients(n)
			h.logger.Debug(ctx, "websocket client unregistered", logger.String("client", c.id), logger.Int("clients", n))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow viewer; drop it rather than stall the others.
					delete(h.clients, c)
					close(c.send)
					metrics.RecordWSDropped()
					h.logger.Warn(ctx, "websocket client too slow, dropped", logger.String("client", c.id))
				}
			}
			metrics.UpdateWSClients(len(h.clients))
			h.mu.Unlock()
		}
	}
}

func (h *Hub) greet(ctx context.Context, c *Client) {
	for _, b := range h.boards {
		for _, m := range fromSnapshot(b.Snapshot()) {
			data, err := json.Marshal(m)
			if err != nil {
				h.logger.Error(ctx, "failed to encode greeting", logger.Error(err))
				continue
			}
			select {
			case c.send <- data:
			default:
				return
			}
		}
	}
}

// OnRender implements render.Listener. It never blocks the caller; when the
// broadcast buffer is full the message is dropped.
func (h *Hub) OnRender(ev render.Event) {
	data, err := json.Marshal(FromEvent(ev))
	if err != nil {
		h.logger.Error(context.Background(), "failed to encode redraw", logger.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		metrics.RecordWSDropped()
	}
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and attaches the viewer to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := newClient(h, conn)
	select {
	case h.register <- c:
	case <-h.stopped():
		_ = conn.Close()
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go c.writePump(ctx)
	go c.readPump(ctx)
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped():
	}
}

// stopped is closed when the current run ends.
func (h *Hub) stopped() <-chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.done
}
