package model

import (
	"time"

	"github.com/samber/lo"

	"github.com/johndosdos/hybridchat/internal/database"
)

// ChatMessage is one stored message as returned by the history endpoints.
// ReceiverUsername is empty for general messages.
type ChatMessage struct {
	ID               int64     `json:"id"`
	Content          string    `json:"content"`
	MessageType      string    `json:"messageType"`
	Username         string    `json:"username"`
	SenderUsername   string    `json:"senderUsername"`
	ReceiverUsername string    `json:"receiverUsername,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

func NewChatMessage(m database.HistoryMessage) ChatMessage {
	return ChatMessage{
		ID:               m.ID,
		Content:          m.Content,
		MessageType:      string(m.MessageType),
		Username:         m.SenderUsername,
		SenderUsername:   m.SenderUsername,
		ReceiverUsername: m.ReceiverUsername.String,
		Timestamp:        m.CreatedAt,
	}
}

func NewChatMessages(ms []database.HistoryMessage) []ChatMessage {
	return lo.Map(ms, func(m database.HistoryMessage, _ int) ChatMessage { return NewChatMessage(m) })
}
