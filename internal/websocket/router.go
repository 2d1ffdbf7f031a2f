package websocket

import (
	"log/slog"

	"github.com/samber/lo"

	"github.com/johndosdos/hybridchat/internal/broker"
	"github.com/johndosdos/hybridchat/internal/frame"
)

// route dispatches one inbound frame from src. Persistence is queued, never
// awaited, so forwarding is unaffected by the store.
func (h *Hub) route(src *Client, raw string) {
	if _, open := h.clients[src]; !open {
		return
	}

	f, err := frame.Parse(raw)
	if err != nil {
		slog.Debug("dropping malformed frame",
			"conn_id", src.ID.String(),
			"payload", raw)
		return
	}

	switch f.Kind {
	case frame.KindGetUsers:
		roster := lo.Without(h.registry.Snapshot(), h.registry.Identities(src)...)
		h.deliver(src, frame.Encode(frame.Users(roster)))

	case frame.KindPresence:
		h.implicitAdmit(f.Sender, src)
		h.broadcast(raw, src)

	case frame.KindPrivate:
		h.persister.Enqueue(broker.PrivateMessage(f.Sender, f.Target, f.Body))
		// The sender renders its own copy; only the target's sockets get it.
		for _, c := range h.registry.Connections(f.Target) {
			if c == src {
				continue
			}
			if _, open := h.clients[c]; !open {
				continue
			}
			h.deliver(c, raw)
		}

	case frame.KindPublic:
		h.persister.Enqueue(broker.GeneralMessage(f.Sender, f.Body))
		h.broadcast(raw, src)

	case frame.KindJoin:
		h.implicitAdmit(f.Sender, src)
		h.broadcast(raw, src)

	default:
		h.broadcast(frame.Encode(frame.Fallback(raw)), src)
	}
}
