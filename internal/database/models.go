package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type MessageType string

const (
	MessageGeneral MessageType = "general"
	MessagePrivate MessageType = "private"
)

type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Email     string
	IsAdmin   bool
	IsOnline  bool
	LastSeen  time.Time
	CreatedAt time.Time
}

type UserWithPassword struct {
	User
	HashedPassword string
}

type Message struct {
	ID          int64
	SenderID    int64
	ReceiverID  pgtype.Int8
	Content     string
	MessageType MessageType
	CreatedAt   time.Time
}

// HistoryMessage is a message joined with its participants' usernames.
type HistoryMessage struct {
	ID               int64
	Content          string
	MessageType      MessageType
	SenderUsername   string
	ReceiverUsername pgtype.Text
	CreatedAt        time.Time
}

type UserStatus struct {
	Username string
	IsOnline bool
	LastSeen time.Time
}

type Stats struct {
	TotalUsers    int64
	TodayUsers    int64
	OnlineUsers   int64
	TotalMessages int64
	TodayMessages int64
}
