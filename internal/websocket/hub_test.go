package websocket

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/hybridchat/internal/broker"
	"github.com/johndosdos/hybridchat/internal/database"
)

type recordingPersister struct {
	mu   sync.Mutex
	jobs []broker.Job
}

func (p *recordingPersister) Enqueue(job broker.Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return true
}

func (p *recordingPersister) recorded() []broker.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]broker.Job(nil), p.jobs...)
}

func (p *recordingPersister) messages() []broker.Job {
	var out []broker.Job
	for _, j := range p.recorded() {
		if j.Kind == broker.JobMessage {
			out = append(out, j)
		}
	}
	return out
}

// drain returns every frame queued for c so far.
func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func connect(h *Hub, username string) *Client {
	c := NewClient(nil, username, 64)
	h.handleRegister(c)
	return c
}

func drainAll(clients ...*Client) {
	for _, c := range clients {
		drain(c)
	}
}

func TestRosterBootstrap(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")
	drainAll(alice, bob)

	carol := connect(h, "carol")

	assert.Equal(t, []string{"USERS:alice,bob,carol"}, drain(carol), "newcomer gets the roster but not its own presence")
	for _, peer := range []*Client{alice, bob} {
		got := drain(peer)
		assert.Contains(t, got, "USERS:alice,bob,carol")
		assert.Contains(t, got, "PRESENCE:carol")
	}
}

func TestAnonymousConnectionIsNotAdmitted(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	drain(alice)

	anon := connect(h, "")

	assert.Equal(t, []string{"alice"}, h.registry.Snapshot())
	assert.Empty(t, drain(alice))
	assert.Empty(t, drain(anon))
}

func TestPrivateTargeting(t *testing.T) {
	p := &recordingPersister{}
	h := NewHub(p)
	alice := connect(h, "alice")
	bob1 := connect(h, "bob")
	bob2 := connect(h, "bob")
	dave := connect(h, "dave")
	drainAll(alice, bob1, bob2, dave)

	h.route(alice, "PRIVATE:alice:bob:hi")

	assert.Equal(t, []string{"PRIVATE:alice:bob:hi"}, drain(bob1))
	assert.Equal(t, []string{"PRIVATE:alice:bob:hi"}, drain(bob2))
	assert.Empty(t, drain(alice), "sender must not get an echo")
	assert.Empty(t, drain(dave))

	jobs := p.messages()
	require.Len(t, jobs, 1)
	assert.Equal(t, "alice", jobs[0].Sender)
	assert.Equal(t, "bob", jobs[0].Receiver)
	assert.Equal(t, "hi", jobs[0].Body)
	assert.Equal(t, database.MessagePrivate, jobs[0].MessageType)
}

func TestPrivateToSelfSkipsSourceConnection(t *testing.T) {
	h := NewHub(nil)
	alice1 := connect(h, "alice")
	alice2 := connect(h, "alice")
	drainAll(alice1, alice2)

	h.route(alice1, "PRIVATE:alice:alice:note to self")

	assert.Empty(t, drain(alice1))
	assert.Equal(t, []string{"PRIVATE:alice:alice:note to self"}, drain(alice2))
}

func TestPrivateUnknownTarget(t *testing.T) {
	p := &recordingPersister{}
	h := NewHub(p)
	alice := connect(h, "alice")
	bob := connect(h, "bob")
	drainAll(alice, bob)

	assert.NotPanics(t, func() {
		h.route(alice, "PRIVATE:alice:carol:hi")
	})

	assert.Empty(t, drain(alice))
	assert.Empty(t, drain(bob))
	jobs := p.messages()
	require.Len(t, jobs, 1, "persistence is still attempted")
	assert.Equal(t, "carol", jobs[0].Receiver)
}

func TestPublicBroadcast(t *testing.T) {
	p := &recordingPersister{}
	h := NewHub(p)
	alice := connect(h, "alice")
	bob := connect(h, "bob")
	anon := connect(h, "")
	drainAll(alice, bob, anon)

	h.route(alice, "PUBLIC:alice:hello:world")

	assert.Empty(t, drain(alice))
	assert.Equal(t, []string{"PUBLIC:alice:hello:world"}, drain(bob))
	assert.Equal(t, []string{"PUBLIC:alice:hello:world"}, drain(anon))

	jobs := p.messages()
	require.Len(t, jobs, 1)
	assert.Equal(t, "alice", jobs[0].Sender)
	assert.Empty(t, jobs[0].Receiver)
	assert.Equal(t, "hello:world", jobs[0].Body)
	assert.Equal(t, database.MessageGeneral, jobs[0].MessageType)
}

func TestFallbackWrapping(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")
	drainAll(alice, bob)

	h.route(alice, "hello everyone")

	assert.Equal(t, []string{"User says: hello everyone"}, drain(bob))
	assert.Empty(t, drain(alice))
}

func TestInboundRosterIsWrapped(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")
	drainAll(alice, bob)

	h.route(alice, "USERS:mallory")

	assert.Equal(t, []string{"User says: USERS:mallory"}, drain(bob))
	assert.False(t, h.registry.IsOnline("mallory"))
}

func TestMalformedFramesAreDropped(t *testing.T) {
	p := &recordingPersister{}
	h := NewHub(p)
	alice := connect(h, "alice")
	bob := connect(h, "bob")
	drainAll(alice, bob)

	for _, raw := range []string{"PUBLIC:alice", "PRIVATE:alice:bob"} {
		assert.NotPanics(t, func() { h.route(alice, raw) })
	}

	assert.Empty(t, drain(alice))
	assert.Empty(t, drain(bob))
	assert.Empty(t, p.messages())
}

func TestEmptyPresenceIsForwardedWithoutAdmit(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")
	anon := connect(h, "")
	drainAll(alice, bob, anon)

	h.route(anon, "PRESENCE:")

	assert.Equal(t, []string{"PRESENCE:"}, drain(alice))
	assert.Equal(t, []string{"PRESENCE:"}, drain(bob))
	assert.Empty(t, drain(anon))
	assert.Equal(t, []string{"alice", "bob"}, h.registry.Snapshot())
	assert.False(t, h.registry.IsOnline(""))
}

func TestGetUsersExcludesRequester(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")
	carol := connect(h, "carol")
	drainAll(alice, bob, carol)

	h.route(bob, "GET_USERS")

	assert.Equal(t, []string{"USERS:alice,carol"}, drain(bob))
	assert.Empty(t, drain(alice))
	assert.Empty(t, drain(carol))

	t.Run("alone online", func(t *testing.T) {
		h := NewHub(nil)
		solo := connect(h, "solo")
		drain(solo)

		h.route(solo, "GET_USERS")
		assert.Equal(t, []string{"USERS:"}, drain(solo))
	})
}

func TestPresenceImplicitAdmit(t *testing.T) {
	p := &recordingPersister{}
	h := NewHub(p)
	alice := connect(h, "alice")
	anon := connect(h, "")
	drainAll(alice, anon)

	h.route(anon, "PRESENCE:erin")

	assert.True(t, h.registry.IsOnline("erin"))
	assert.Equal(t, []*Client{anon}, h.registry.Connections("erin"))
	assert.Equal(t, []string{"USERS:alice,erin", "PRESENCE:erin", "PRESENCE:erin"}, drain(alice))
	assert.Equal(t, []string{"USERS:alice,erin"}, drain(anon))

	t.Run("repeated presence does not re-admit", func(t *testing.T) {
		h.route(anon, "PRESENCE:erin")

		assert.Len(t, h.registry.Connections("erin"), 1)
		assert.Equal(t, []string{"PRESENCE:erin"}, drain(alice))
		assert.Empty(t, drain(anon))
	})

	t.Run("presence for an online identity from another socket", func(t *testing.T) {
		h.route(anon, "PRESENCE:alice")

		assert.Equal(t, []*Client{alice}, h.registry.Connections("alice"))
		assert.Equal(t, []string{"PRESENCE:alice"}, drain(alice))
	})
}

func TestJoinPhraseImplicitAdmit(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	anon := connect(h, "")
	drainAll(alice, anon)

	h.route(anon, "frank joined the chat")

	assert.True(t, h.registry.IsOnline("frank"))
	got := drain(alice)
	assert.Contains(t, got, "USERS:alice,frank")
	assert.Contains(t, got, "PRESENCE:frank")
	assert.Equal(t, "frank joined the chat", got[len(got)-1])

	h.route(anon, "frank joined the chat")
	assert.Len(t, h.registry.Connections("frank"), 1)
	assert.Equal(t, []string{"frank joined the chat"}, drain(alice))

	t.Run("nameless join is forwarded only", func(t *testing.T) {
		h.route(anon, "joined the chat")
		assert.Equal(t, []string{"joined the chat"}, drain(alice))
		assert.Equal(t, []string{"alice", "frank"}, h.registry.Snapshot())
	})
}

func TestMultiConnectionPresence(t *testing.T) {
	p := &recordingPersister{}
	h := NewHub(p)
	alice := connect(h, "alice")
	bob1 := connect(h, "bob")
	bob2 := connect(h, "bob")
	drainAll(alice, bob1, bob2)

	h.retire(bob1)

	assert.True(t, h.registry.IsOnline("bob"))
	assert.Equal(t, []string{"alice", "bob"}, h.registry.Snapshot())
	assert.Empty(t, drain(alice), "no roster change while another tab is open")

	h.retire(bob2)

	assert.False(t, h.registry.IsOnline("bob"))
	assert.Equal(t, []string{"USERS:alice"}, drain(alice))

	var presence []broker.Job
	for _, j := range p.recorded() {
		if j.Kind == broker.JobPresence && j.Sender == "bob" {
			presence = append(presence, j)
		}
	}
	require.Len(t, presence, 2)
	assert.True(t, presence[0].Online)
	assert.False(t, presence[1].Online)
}

func TestRetireIsIdempotent(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")
	drainAll(alice, bob)

	h.retire(bob)
	assert.Equal(t, []string{"USERS:alice"}, drain(alice))

	assert.NotPanics(t, func() { h.retire(bob) })
	assert.Empty(t, drain(alice))
	assert.False(t, bob.Send("late"), "retired client refuses frames")
}

func TestRetireReleasesImplicitIdentities(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	shared := connect(h, "gina")
	h.route(shared, "PRESENCE:hank")
	drainAll(alice, shared)

	h.retire(shared)

	assert.Equal(t, []string{"alice"}, h.registry.Snapshot())
	assert.Equal(t, []string{"USERS:alice"}, drain(alice))
}

func TestFramesFromRetiredClientAreIgnored(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")
	h.retire(bob)
	drain(alice)

	h.route(bob, "PUBLIC:bob:still here?")
	h.route(bob, "PRESENCE:bob")

	assert.Empty(t, drain(alice))
	assert.False(t, h.registry.IsOnline("bob"))
}

func TestSlowConnectionIsRetired(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	slow := NewClient(nil, "slow", 1)
	h.handleRegister(slow) // fills slow's single slot with the roster
	drain(alice)

	h.route(alice, "PUBLIC:alice:anyone there?")

	assert.False(t, h.registry.IsOnline("slow"))
	assert.Equal(t, []string{"USERS:alice"}, drain(alice))
	_, open := h.clients[slow]
	assert.False(t, open)
}

func TestHubRun(t *testing.T) {
	p := &recordingPersister{}
	h := NewHub(p)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	alice := NewClient(nil, "alice", 64)
	bob := NewClient(nil, "bob", 64)
	require.NoError(t, h.Join(ctx, alice))
	require.NoError(t, h.Join(ctx, bob))
	assert.Same(t, h, alice.hub)

	require.True(t, h.inbound(Inbound{Client: alice, Data: "PUBLIC:alice:hi"}))

	var got []string
	require.Eventually(t, func() bool {
		got = append(got, drain(bob)...)
		return slices.Contains(got, "PUBLIC:alice:hi")
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, p.messages(), 1)

	h.unregister(bob)
	require.Eventually(t, func() bool { return !h.registry.IsOnline("bob") }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	assert.Zero(t, h.registry.Len())
	last := p.recorded()[len(p.recorded())-1]
	assert.Equal(t, broker.Presence("alice", false), last)

	assert.False(t, alice.Send("after shutdown"))
	assert.ErrorIs(t, h.Join(context.Background(), NewClient(nil, "late", 1)), ErrHubStopped)
	assert.False(t, h.inbound(Inbound{Client: alice, Data: "x"}))
	assert.NotPanics(t, func() { h.unregister(alice) })
}

func TestHubRosterView(t *testing.T) {
	h := NewHub(nil)
	alice := connect(h, "alice")
	connect(h, "bob")

	assert.Equal(t, []string{"alice", "bob"}, h.Snapshot())
	assert.True(t, h.IsOnline("alice"))

	snap := h.Snapshot()
	snap[0] = "mallory"
	assert.Equal(t, []string{"alice", "bob"}, h.Snapshot(), "callers get a copy")

	h.retire(alice)
	assert.False(t, h.IsOnline("alice"))
	assert.Equal(t, []string{"bob"}, h.Snapshot())
}
