package websocket

import (
	"context"
	"errors"
	"log/slog"

	"github.com/johndosdos/hybridchat/internal/broker"
)

// ErrHubStopped is returned when a client tries to join a hub that is no longer running.
var ErrHubStopped = errors.New("websocket: hub stopped")

// JobQueue accepts persistence work without blocking the hub.
type JobQueue interface {
	Enqueue(job broker.Job) bool
}

type noopPersister struct{}

func (noopPersister) Enqueue(broker.Job) bool { return true }

type Registration struct {
	Client *Client
	Done   chan struct{}
}

// Inbound is one text frame read from a client.
type Inbound struct {
	Client *Client
	Data   string
}

// Hub owns every open connection and the identity registry. All mutation
// happens on the Run goroutine, so registry changes are linearizable.
type Hub struct {
	registry   *Registry
	clients    map[*Client]struct{}
	persister  JobQueue
	Register   chan Registration
	Unregister chan *Client
	Messages   chan Inbound
	done       chan struct{}
}

// NewHub returns a new instance of Hub. A nil p disables persistence.
func NewHub(p JobQueue) *Hub {
	if p == nil {
		p = noopPersister{}
	}
	return &Hub{
		registry:   NewRegistry(),
		clients:    make(map[*Client]struct{}),
		persister:  p,
		Register:   make(chan Registration),
		Unregister: make(chan *Client),
		Messages:   make(chan Inbound, 1024),
		done:       make(chan struct{}),
	}
}

// Snapshot returns the online identities in the order they came online.
func (h *Hub) Snapshot() []string {
	return h.registry.Snapshot()
}

// IsOnline reports whether identity has at least one live connection.
func (h *Hub) IsOnline(identity string) bool {
	return h.registry.IsOnline(identity)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run manages incoming and outgoing hub traffic.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case reg := <-h.Register:
			h.handleRegister(reg.Client)
			close(reg.Done)

		case client := <-h.Unregister:
			h.retire(client)

		case msg := <-h.Messages:
			h.route(msg.Client, msg.Data)

		case <-ctx.Done():
			slog.Info("hub stopping",
				"reason", ctx.Err(),
				"connections", len(h.clients))
			h.shutdown()
			return
		}
	}
}

// Join registers c and waits until the hub has admitted it.
func (h *Hub) Join(ctx context.Context, c *Client) error {
	reg := Registration{Client: c, Done: make(chan struct{})}

	select {
	case h.Register <- reg:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-reg.Done:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) inbound(msg Inbound) bool {
	select {
	case h.Messages <- msg:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handleRegister(c *Client) {
	c.hub = h
	h.clients[c] = struct{}{}

	slog.Debug("connection opened",
		"conn_id", c.ID.String(),
		"username", c.Username,
		"connections", len(h.clients))

	if c.Username != "" {
		h.admit(c.Username, c)
	}
}

// admit binds c to identity and announces the change. Admitting a connection
// that is already bound is a no-op.
func (h *Hub) admit(identity string, c *Client) {
	created, added := h.registry.Admit(identity, c)
	if !added {
		return
	}

	slog.Info("user connected",
		"username", identity,
		"conn_id", c.ID.String(),
		"online", h.registry.Len())

	if created {
		h.persister.Enqueue(broker.Presence(identity, true))
	}

	h.announceRoster()
	h.announcePresence(identity, c)
}

// implicitAdmit is the compatibility path for clients that announce themselves
// in-band with PRESENCE or a join phrase instead of opening the connection
// under their name. It only admits identities that are not online yet.
func (h *Hub) implicitAdmit(identity string, c *Client) bool {
	if identity == "" || h.registry.IsOnline(identity) {
		return false
	}
	if _, open := h.clients[c]; !open {
		return false
	}
	h.admit(identity, c)
	return true
}

// retire drops c and every identity bound to it. Retiring a connection that
// is already gone is a no-op.
func (h *Hub) retire(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.Close()

	rosterChanged := false
	for _, identity := range h.registry.Identities(c) {
		emptied, _ := h.registry.Retire(identity, c)
		if !emptied {
			continue
		}
		rosterChanged = true
		h.persister.Enqueue(broker.Presence(identity, false))

		slog.Info("user fully disconnected",
			"username", identity,
			"online", h.registry.Len())
	}

	if rosterChanged {
		h.announceRoster()
	}
}

// shutdown closes every connection and releases their identities without
// announcing anything to the peers that are going away too.
func (h *Hub) shutdown() {
	for c := range h.clients {
		delete(h.clients, c)
		c.Close()
		for _, identity := range h.registry.Identities(c) {
			if emptied, _ := h.registry.Retire(identity, c); emptied {
				h.persister.Enqueue(broker.Presence(identity, false))
			}
		}
	}
}

func (h *Hub) connections() []*Client {
	conns := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	return conns
}

// deliver enqueues msg for c. A connection that cannot take the frame is
// treated as dead and retired.
func (h *Hub) deliver(c *Client, msg string) {
	if c.Send(msg) {
		return
	}
	slog.Warn("dropping unresponsive connection",
		"conn_id", c.ID.String(),
		"username", c.Username)
	h.retire(c)
}

// broadcast sends msg to every open connection except exclude.
func (h *Hub) broadcast(msg string, exclude *Client) {
	for _, c := range h.connections() {
		if c == exclude {
			continue
		}
		// An earlier failed delivery may have retired c already.
		if _, open := h.clients[c]; !open {
			continue
		}
		h.deliver(c, msg)
	}
}
