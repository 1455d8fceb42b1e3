package broadcast

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

const writeWait = 10 * time.Second

// WSBridge connects browser tabs to the daemon's controller. Snapshots the
// controller publishes go to every tab; a snapshot pushed by a tab goes to the
// other tabs and to the bridge's subscribers.
type WSBridge struct {
	origin   string
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*wsConn]struct{}
	closed bool

	subs subscribers
	// deliverMu keeps subscriber calls sequential across connections.
	deliverMu sync.Mutex
}

type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewWSBridge creates a bridge. checkOrigin may be nil to accept any origin.
func NewWSBridge(origin string, checkOrigin func(r *http.Request) bool, logger *slog.Logger) *WSBridge {
	if logger == nil {
		logger = slog.Default()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WSBridge{
		origin:   origin,
		logger:   logger.With("transport", "websocket"),
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		conns:    make(map[*wsConn]struct{}),
	}
}

// Connections reports the number of attached tabs.
func (b *WSBridge) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// ServeHTTP upgrades the request and pumps snapshots until the tab goes away.
func (b *WSBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConn{id: uuid.NewString(), conn: conn}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.conns[c] = struct{}{}
	b.mu.Unlock()
	b.logger.Debug("tab connected", "conn", c.id)

	defer b.drop(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn("websocket read failed", "conn", c.id, "error", err)
			}
			return
		}
		env, err := decode(data)
		if err != nil {
			b.logger.Warn("skipping malformed snapshot", "conn", c.id, "error", err)
			continue
		}
		if env.Origin == "" {
			env.Origin = c.id
		}
		out, err := encode(env.Origin, env.Board)
		if err != nil {
			continue
		}
		b.broadcast(out, c)

		b.deliverMu.Lock()
		b.subs.deliver(env.Board)
		b.deliverMu.Unlock()
	}
}

func (b *WSBridge) drop(c *wsConn) {
	b.mu.Lock()
	delete(b.conns, c)
	b.mu.Unlock()
	c.conn.Close()
	b.logger.Debug("tab disconnected", "conn", c.id)
}

func (b *WSBridge) broadcast(data []byte, skip *wsConn) {
	b.mu.Lock()
	targets := make([]*wsConn, 0, len(b.conns))
	for c := range b.conns {
		if c != skip {
			targets = append(targets, c)
		}
	}
	b.mu.Unlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			b.logger.Warn("websocket write failed, dropping tab", "conn", c.id, "error", err)
			b.drop(c)
		}
	}
}

// Publish sends board to every connected tab.
func (b *WSBridge) Publish(_ context.Context, board schema.Board) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	data, err := encode(b.origin, board)
	if err != nil {
		return err
	}
	b.broadcast(data, nil)
	return nil
}

func (b *WSBridge) Subscribe(fn func(schema.Board)) func() {
	return b.subs.add(fn)
}

// Close disconnects every tab.
func (b *WSBridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	conns := b.conns
	b.conns = make(map[*wsConn]struct{})
	b.mu.Unlock()

	for c := range conns {
		c.mu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		c.conn.Close()
	}
	return nil
}
