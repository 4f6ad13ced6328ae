package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/svgsprite/internal/logging"
)

// ReloadMessage is broadcast to every page after a successful rebuild.
const ReloadMessage = "reload"

const (
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// ReloadHub tracks connected catalog pages and tells them to reload.
//
// A single hub goroutine owns registration; the clients map is also
// guarded by clientsMutex so ClientCount can read it.
type ReloadHub struct {
	clients      map[*websocket.Conn]*client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *client
	unregister chan *websocket.Conn

	logger logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
}

// NewReloadHub creates a hub and starts its goroutine.
func NewReloadHub(logger logging.Logger) *ReloadHub {
	if logger == nil {
		logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())

	h := &ReloadHub{
		clients:    make(map[*websocket.Conn]*client),
		broadcast:  make(chan []byte, 8),
		register:   make(chan *client, 8),
		unregister: make(chan *websocket.Conn, 8),
		logger:     logger.WithComponent("reload"),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go h.run()

	return h
}

// ServeHTTP upgrades the request and holds the connection until the page
// goes away or the hub shuts down. Cross-origin upgrades are refused.
func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close(websocket.StatusServiceRestart, "server shutting down")
		return
	}

	go h.writeToClient(c)
	h.readFromClient(c)
}

// Broadcast queues message for every connected page. When the queue is
// full the message is dropped; a queued reload already covers it.
func (h *ReloadHub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.ctx.Done():
	default:
		h.logger.Debug(h.ctx, "Broadcast queue full, dropping message")
	}
}

// ClientCount returns the number of registered pages.
func (h *ReloadHub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection and stops the hub.
func (h *ReloadHub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(h.cancel)

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *ReloadHub) run() {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.clientsMutex.Lock()
			h.clients[c.conn] = c
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(h.ctx, "Page connected", "clients", count)

		case conn := <-h.unregister:
			h.remove(conn)

		case message := <-h.broadcast:
			h.clientsMutex.RLock()
			var stalled []*websocket.Conn
			for conn, c := range h.clients {
				select {
				case c.send <- message:
				default:
					stalled = append(stalled, conn)
				}
			}
			h.clientsMutex.RUnlock()
			for _, conn := range stalled {
				h.remove(conn)
			}

		case <-h.ctx.Done():
			h.clientsMutex.Lock()
			for conn, c := range h.clients {
				close(c.send)
				delete(h.clients, conn)
			}
			h.clientsMutex.Unlock()
			return
		}
	}
}

// remove must only run on the hub goroutine.
func (h *ReloadHub) remove(conn *websocket.Conn) {
	h.clientsMutex.Lock()
	c, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(c.send)
	}
	count := len(h.clients)
	h.clientsMutex.Unlock()

	if ok {
		h.logger.Debug(h.ctx, "Page disconnected", "clients", count)
	}
}

func (h *ReloadHub) drop(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.ctx.Done():
	}
}

// readFromClient discards page messages. Reading must continue so pongs
// and close frames are processed.
func (h *ReloadHub) readFromClient(c *client) {
	defer h.drop(c.conn)

	for {
		if _, _, err := c.conn.Read(h.ctx); err != nil {
			status := websocket.CloseStatus(err)
			if h.ctx.Err() == nil && status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				h.logger.Debug(h.ctx, "WebSocket read ended", "error", err.Error())
			}
			return
		}
	}
}

func (h *ReloadHub) writeToClient(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.drop(c.conn)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				h.drop(c.conn)
				return
			}
		}
	}
}
