package websocket

import (
	"context"
	"log/slog"

	"github.com/coder/websocket"
)

// ReadMessage reads the incoming data from the websocket stream and hands each
// text frame to the hub. It retires the client when the stream ends.
func (c *Client) ReadMessage(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.CloseNow()
	}()

	for {
		msgType, p, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				slog.WarnContext(ctx, "websocket read failed",
					"error", err,
					"conn_id", c.ID.String())
			}
			return
		}

		// Frames are untyped text; binary messages carry nothing we understand.
		if msgType != websocket.MessageText {
			continue
		}

		if !c.allow() {
			slog.WarnContext(ctx, "rate limit exceeded, dropping frame",
				"conn_id", c.ID.String(),
				"username", c.Username)
			continue
		}

		slog.DebugContext(ctx, "received frame",
			"conn_id", c.ID.String(),
			"payload", string(p))

		if !c.hub.inbound(Inbound{Client: c, Data: string(p)}) {
			return
		}
	}
}
