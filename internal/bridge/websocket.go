// internal/bridge/websocket.go
package bridge

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Controllers send small command frames; anything bigger is garbage.
	maxMessageSize = 64 * 1024
	// Inbound frames per client per second; detect bursts above the display
	// rate are pointless anyway.
	inboundRate  = rate.Limit(120)
	inboundBurst = 30
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement happens in the validator per message, where runtime
	// reconfiguration can see it; the upgrade itself accepts anyone.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one connected controller.
type wsClient struct {
	id     string
	origin string
	hub    *WSTransport
	conn   *websocket.Conn
	send   chan []byte
	limit  *rate.Limiter
}

// WSTransport serves the bridge protocol over websockets. Every connected
// controller receives every event; inbound frames are tagged with the
// client's handshake Origin so the validator can judge them.
type WSTransport struct {
	logger *zap.Logger

	in         chan Inbound
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewWSTransport creates a websocket transport. Run must be started before
// clients connect.
func NewWSTransport(logger *zap.Logger) *WSTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSTransport{
		logger:     logger.Named("ws_transport"),
		in:         make(chan Inbound, 64),
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled.
func (t *WSTransport) Run(ctx context.Context) {
	t.logger.Info("websocket transport started")
	defer t.logger.Info("websocket transport stopped")

	for {
		select {
		case <-ctx.Done():
			t.Close()
			return
		case <-t.done:
			return
		case c := <-t.register:
			t.mu.Lock()
			t.clients[c] = true
			t.mu.Unlock()
			t.logger.Info("controller connected",
				zap.String("client_id", c.id), zap.String("origin", c.origin))
		case c := <-t.unregister:
			t.mu.Lock()
			if _, ok := t.clients[c]; ok {
				delete(t.clients, c)
				close(c.send)
				t.logger.Info("controller disconnected", zap.String("client_id", c.id))
			}
			t.mu.Unlock()
		}
	}
}

// HandleWS upgrades an HTTP request into a controller connection.
func (t *WSTransport) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &wsClient{
		id:     uuid.New().String(),
		origin: r.Header.Get("Origin"),
		hub:    t,
		conn:   conn,
		send:   make(chan []byte, 256),
		limit:  rate.NewLimiter(inboundRate, inboundBurst),
	}
	select {
	case t.register <- c:
	case <-t.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// Send broadcasts an event to every connected controller. TargetOrigin is
// advisory on this transport; the socket is already pinned to the client that
// opened it.
func (t *WSTransport) Send(out Outbound) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return errTransportClosed
	}
	for c := range t.clients {
		if out.TargetOrigin != "*" && out.TargetOrigin != "" && c.origin != "" && c.origin != out.TargetOrigin {
			continue
		}
		select {
		case c.send <- out.Payload:
		default:
			// Slow consumer; readPump's close path will reap it.
			t.logger.Warn("dropping event for slow controller", zap.String("client_id", c.id))
		}
	}
	return nil
}

func (t *WSTransport) Receive() <-chan Inbound { return t.in }

func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	for c := range t.clients {
		close(c.send)
		c.conn.Close()
		delete(t.clients, c)
	}
	// t.in stays open: readPumps may still be draining toward it and exit via
	// done. The bridge loop ends through its context, not channel closure.
	return nil
}

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		if !c.limit.Allow() {
			c.hub.logger.Debug("inbound frame rate limited", zap.String("client_id", c.id))
			continue
		}
		select {
		case c.hub.in <- Inbound{Payload: message, Origin: c.origin}:
		case <-c.hub.done:
			return
		}
	}
}

func (c *wsClient) writePump() {
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
