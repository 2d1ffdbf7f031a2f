package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	writeTimeout     = 10 * time.Second
	defaultSendQueue = 64
)

// Client is one live duplex connection. Username is the identity asserted when
// the connection was opened and may be empty.
type Client struct {
	ID         uuid.UUID
	Username   string
	conn       *websocket.Conn
	hub        *Hub
	send       chan string
	messageLim *rate.Limiter

	mu     sync.Mutex
	closed bool
}

// NewClient wraps conn. A nil conn yields a client whose outbound frames can
// only be drained through Outbound, which is what the hub tests rely on.
func NewClient(conn *websocket.Conn, username string, sendQueue int) *Client {
	if sendQueue <= 0 {
		sendQueue = defaultSendQueue
	}
	return &Client{
		ID:       uuid.New(),
		Username: username,
		conn:     conn,
		send:     make(chan string, sendQueue),
	}
}

func (c *Client) SetMessageLimiter(requests int, window time.Duration) {
	if requests <= 0 || window <= 0 {
		c.messageLim = nil
		return
	}
	c.messageLim = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
}

// Send enqueues msg without blocking. It reports false when the client is
// closed or its queue is full.
func (c *Client) Send(msg string) bool {
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

// Close stops outbound delivery. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Outbound exposes the queue WriteMessage drains.
func (c *Client) Outbound() <-chan string {
	return c.send
}

func (c *Client) allow() bool {
	return c.messageLim == nil || c.messageLim.Allow()
}

// WriteMessage writes queued frames to the websocket until the queue is closed
// or ctx is done.
func (c *Client) WriteMessage(ctx context.Context) {
	for {
		select {
		case msg, ok := <-c.send:
			// We don't want to continue processing when the channel has already been
			// closed.
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "connection retired")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, []byte(msg))
			cancel()
			if err != nil {
				slog.WarnContext(ctx, "failed to write frame",
					"error", err,
					"conn_id", c.ID.String(),
					"username", c.Username)
				c.conn.CloseNow()
				return
			}

		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
	}
}

// Keepalive pings the peer every interval. A failed ping closes the
// connection, which ends ReadMessage and retires the client.
func (c *Client) Keepalive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				slog.DebugContext(ctx, "ping failed",
					"error", err,
					"conn_id", c.ID.String())
				c.conn.CloseNow()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
