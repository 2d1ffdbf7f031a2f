package websocket

import "github.com/johndosdos/hybridchat/internal/frame"

// announceRoster sends the current roster to every open connection, including
// one that just joined so it can bootstrap its view.
func (h *Hub) announceRoster() {
	h.broadcast(frame.Encode(frame.Users(h.registry.Snapshot())), nil)
}

// announcePresence tells every connection except exclude that identity is reachable.
func (h *Hub) announcePresence(identity string, exclude *Client) {
	h.broadcast(frame.Encode(frame.Presence(identity)), exclude)
}
