// Command loadtest opens many websocket connections against a running server
// and drives PUBLIC and PRIVATE traffic through them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/johndosdos/hybridchat/internal/frame"
)

type counters struct {
	sent     atomic.Int64
	received atomic.Int64
	roster   atomic.Int64
	presence atomic.Int64
	public   atomic.Int64
	private  atomic.Int64
	other    atomic.Int64
	failed   atomic.Int64
}

func (c *counters) count(raw string) {
	c.received.Add(1)

	f, err := frame.Parse(raw)
	if err != nil {
		c.other.Add(1)
		return
	}
	switch f.Kind {
	case frame.KindUsers:
		c.roster.Add(1)
	case frame.KindPresence:
		c.presence.Add(1)
	case frame.KindPublic:
		c.public.Add(1)
	case frame.KindPrivate:
		c.private.Add(1)
	default:
		c.other.Add(1)
	}
}

func main() {
	addr := flag.String("addr", "ws://localhost:5000/ws", "websocket endpoint")
	clients := flag.Int("clients", 50, "number of concurrent users")
	messages := flag.Int("messages", 20, "frames sent per user")
	interval := flag.Duration("interval", 100*time.Millisecond, "delay between frames per user")
	linger := flag.Duration("linger", 2*time.Second, "time to keep reading after the last frame")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats := &counters{}
	start := time.Now()

	var wg sync.WaitGroup
	for i := range *clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := fmt.Sprintf("load%d", i)
			peer := fmt.Sprintf("load%d", (i+1)%*clients)
			if err := runUser(ctx, *addr, user, peer, *messages, *interval, *linger, stats); err != nil {
				stats.failed.Add(1)
				slog.Warn("user run failed", "username", user, "error", err)
			}
		}()
	}
	wg.Wait()

	slog.Info("load test finished",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"clients", *clients,
		"failed", stats.failed.Load(),
		"sent", stats.sent.Load(),
		"received", stats.received.Load(),
		"roster", stats.roster.Load(),
		"presence", stats.presence.Load(),
		"public", stats.public.Load(),
		"private", stats.private.Load(),
		"other", stats.other.Load())
}

// runUser connects as user and alternates public messages with private
// messages to peer.
func runUser(ctx context.Context, addr, user, peer string, n int, interval, linger time.Duration, stats *counters) error {
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("loadtest: bad addr: %w", err)
	}
	q := u.Query()
	q.Set("user", user)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("loadtest: dial: %w", err)
	}
	defer conn.CloseNow()

	readCtx, stopReading := context.WithCancel(ctx)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_, p, err := conn.Read(readCtx)
			if err != nil {
				return
			}
			stats.count(string(p))
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := range n {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			stopReading()
			<-readDone
			return nil
		}

		f := frame.Public(user, fmt.Sprintf("message %d: hello", i))
		if i%2 == 1 {
			f = frame.Private(user, peer, fmt.Sprintf("message %d: psst", i))
		}
		if err := conn.Write(ctx, websocket.MessageText, []byte(frame.Encode(f))); err != nil {
			stopReading()
			<-readDone
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("loadtest: write: %w", err)
		}
		stats.sent.Add(1)
	}

	select {
	case <-time.After(linger):
	case <-ctx.Done():
	}
	stopReading()
	<-readDone

	conn.Close(websocket.StatusNormalClosure, "load test done")
	return nil
}
