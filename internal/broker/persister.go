package broker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/microcosm-cc/bluemonday"

	"github.com/johndosdos/hybridchat/internal/database"
)

const drainTimeout = 5 * time.Second

// Store is the slice of the database the workers need.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (database.User, error)
	CreateMessage(ctx context.Context, arg database.CreateMessageParams) (database.Message, error)
	SetUserOnline(ctx context.Context, username string, online bool) error
}

type sanitizer interface {
	Sanitize(s string) string
}

// Persister owns the job queues and their workers. Each worker drains its own
// queue and every job for a given sender lands on the same one, so a user's
// online/offline transitions are applied in the order they were enqueued.
type Persister struct {
	store     Store
	queues    []chan Job
	sanitizer sanitizer
	wg        sync.WaitGroup
}

func NewPersister(store Store, workers, queue int) *Persister {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = 1024
	}
	perWorker := max(queue/workers, 1)

	queues := make([]chan Job, workers)
	for i := range queues {
		queues[i] = make(chan Job, perWorker)
	}
	return &Persister{
		store:     store,
		queues:    queues,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (p *Persister) queueFor(sender string) chan Job {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sender))
	return p.queues[h.Sum32()%uint32(len(p.queues))]
}

// Enqueue queues job without blocking. It reports false, and drops the job,
// when the queue is full.
func (p *Persister) Enqueue(job Job) bool {
	select {
	case p.queueFor(job.Sender) <- job:
		return true
	default:
		slog.Warn("persistence queue full, dropping job",
			"kind", job.Kind.String(),
			"sender", job.Sender)
		return false
	}
}

// Run starts the workers and blocks until ctx is done and they have exited.
// Jobs still queued at shutdown get a short grace period.
func (p *Persister) Run(ctx context.Context) {
	for _, jobs := range p.queues {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.work(ctx, jobs)
		}()
	}
	p.wg.Wait()
}

func (p *Persister) work(ctx context.Context, jobs <-chan Job) {
	for {
		select {
		case job := <-jobs:
			p.handle(ctx, job)
		case <-ctx.Done():
			p.drain(context.WithoutCancel(ctx), jobs)
			return
		}
	}
}

func (p *Persister) drain(ctx context.Context, jobs <-chan Job) {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	for {
		select {
		case job := <-jobs:
			p.handle(ctx, job)
		default:
			return
		}
	}
}

func (p *Persister) handle(ctx context.Context, job Job) {
	var err error
	switch job.Kind {
	case JobPresence:
		err = p.store.SetUserOnline(ctx, job.Sender, job.Online)
	default:
		err = p.saveMessage(ctx, job)
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		slog.DebugContext(ctx, "skipping persistence for unknown user",
			"kind", job.Kind.String(),
			"sender", job.Sender,
			"receiver", job.Receiver)
	case err != nil:
		slog.ErrorContext(ctx, "failed to persist",
			"error", err,
			"kind", job.Kind.String(),
			"sender", job.Sender)
	}
}

// saveMessage resolves the participants against durable user records. Messages
// from or to usernames without an account are not stored.
func (p *Persister) saveMessage(ctx context.Context, job Job) error {
	sender, err := p.store.GetUserByUsername(ctx, job.Sender)
	if err != nil {
		return fmt.Errorf("broker: lookup sender: %w", err)
	}

	var receiverID pgtype.Int8
	if job.MessageType == database.MessagePrivate {
		receiver, err := p.store.GetUserByUsername(ctx, job.Receiver)
		if err != nil {
			return fmt.Errorf("broker: lookup receiver: %w", err)
		}
		receiverID = pgtype.Int8{Int64: receiver.ID, Valid: true}
	}

	// We need to sanitize stored messages since history is served to browsers.
	_, err = p.store.CreateMessage(ctx, database.CreateMessageParams{
		SenderID:    sender.ID,
		ReceiverID:  receiverID,
		Content:     p.sanitizer.Sanitize(job.Body),
		MessageType: job.MessageType,
		CreatedAt:   job.CreatedAt,
	})
	return err
}
