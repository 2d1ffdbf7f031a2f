// Package handler implements the HTTP API and the websocket upgrade.
package handler

import (
	"context"

	"github.com/johndosdos/hybridchat/internal/database"
)

// Store is the subset of *database.Queries the HTTP handlers use.
type Store interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UserExists(ctx context.Context, email, username string) (bool, error)
	GetUserWithPasswordByEmail(ctx context.Context, email string) (database.UserWithPassword, error)
	SetUserOnline(ctx context.Context, username string, online bool) error
	ListUserStatus(ctx context.Context, excluding string) ([]database.UserStatus, error)
	ListUsers(ctx context.Context) ([]database.User, error)
	GetStats(ctx context.Context) (database.Stats, error)
	ListGeneralMessages(ctx context.Context, limit int32) ([]database.HistoryMessage, error)
	ListPrivateMessages(ctx context.Context, a, b string, limit int32) ([]database.HistoryMessage, error)
	ListRecentMessages(ctx context.Context, limit int32) ([]database.HistoryMessage, error)
}

const (
	historyLimit      = 50
	adminHistoryLimit = 100
)
