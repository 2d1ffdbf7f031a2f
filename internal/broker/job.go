// Package broker moves durable side effects of routing decisions off the
// routing loop. Jobs are queued without blocking and handled by a small worker
// pool; failures are logged and never retried.
package broker

import (
	"time"

	"github.com/johndosdos/hybridchat/internal/database"
)

type JobKind int

const (
	// JobMessage persists a chat message.
	JobMessage JobKind = iota
	// JobPresence records an identity going online or offline.
	JobPresence
)

func (k JobKind) String() string {
	if k == JobPresence {
		return "presence"
	}
	return "message"
}

type Job struct {
	Kind        JobKind
	Sender      string
	Receiver    string // empty for general messages
	Body        string
	MessageType database.MessageType
	Online      bool
	CreatedAt   time.Time
}

// PrivateMessage builds a job persisting a direct message.
func PrivateMessage(sender, receiver, body string) Job {
	return Job{
		Kind:        JobMessage,
		Sender:      sender,
		Receiver:    receiver,
		Body:        body,
		MessageType: database.MessagePrivate,
		CreatedAt:   time.Now().UTC(),
	}
}

// GeneralMessage builds a job persisting a general-room message.
func GeneralMessage(sender, body string) Job {
	return Job{
		Kind:        JobMessage,
		Sender:      sender,
		Body:        body,
		MessageType: database.MessageGeneral,
		CreatedAt:   time.Now().UTC(),
	}
}

// Presence builds a job recording an online/offline transition.
func Presence(username string, online bool) Job {
	return Job{Kind: JobPresence, Sender: username, Online: online, CreatedAt: time.Now().UTC()}
}
