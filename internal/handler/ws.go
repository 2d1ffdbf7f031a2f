package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/johndosdos/hybridchat/internal/auth"
	ws "github.com/johndosdos/hybridchat/internal/websocket"
)

// WsOpts tunes each upgraded connection.
type WsOpts struct {
	// OriginPatterns are host patterns accepted in addition to same-origin.
	OriginPatterns []string
	SendBuffer     int
	MaxFrameBytes  int64
	PingInterval   time.Duration
	MessageRate    int
	MessageWindow  time.Duration

	// With RequireToken set, the token query parameter must carry a JWT whose
	// username matches the user query parameter.
	RequireToken bool
	Verifier     auth.Verifier
}

// ServeWs handles the client's websocket connection upgrade. The identity is
// taken from the user query parameter; without one the connection stays
// anonymous until it announces itself.
func ServeWs(h *ws.Hub, opts WsOpts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		username := r.URL.Query().Get("user")

		if opts.RequireToken {
			id, err := opts.Verifier.Verify(r.URL.Query().Get("token"))
			if err != nil {
				slog.DebugContext(ctx, "rejected websocket token", "error", err)
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if username == "" {
				username = id.Username
			}
			if id.Username != username {
				writeError(w, http.StatusForbidden, "Token does not match user")
				return
			}
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			slog.WarnContext(ctx, "websocket upgrade failed", "error", err)
			return
		}
		if opts.MaxFrameBytes > 0 {
			conn.SetReadLimit(opts.MaxFrameBytes)
		}

		// We'll register our new client to the central hub.
		c := ws.NewClient(conn, username, opts.SendBuffer)
		c.SetMessageLimiter(opts.MessageRate, opts.MessageWindow)

		if err := h.Join(ctx, c); err != nil {
			slog.WarnContext(ctx, "hub refused connection", "error", err)
			conn.Close(websocket.StatusTryAgainLater, "server shutting down")
			return
		}

		slog.InfoContext(ctx, "websocket client connected",
			"conn_id", c.ID.String(),
			"username", username)

		// We block on c.ReadMessage() because the request context will be
		// canceled as soon as we return from the ServeWs() handler.
		go c.WriteMessage(ctx)
		go c.Keepalive(ctx, opts.PingInterval)
		c.ReadMessage(ctx)

		slog.InfoContext(ctx, "websocket client disconnected",
			"conn_id", c.ID.String(),
			"username", username)
	}
}
