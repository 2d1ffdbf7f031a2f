// Package model defines the JSON shapes served by the HTTP API.
package model

import (
	"time"

	"github.com/samber/lo"

	"github.com/johndosdos/hybridchat/internal/database"
)

// User is the public view of an account. Password hashes never leave the
// database package.
type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	IsOnline  bool      `json:"isOnline"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type UserStatus struct {
	Username string    `json:"username"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// OnlineUsers is the live roster as seen by the websocket hub.
type OnlineUsers struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

type Stats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TodayUsers    int64 `json:"todayUsers"`
	OnlineUsers   int64 `json:"onlineUsers"`
	TotalMessages int64 `json:"totalMessages"`
	TodayMessages int64 `json:"todayMessages"`
}

func NewUser(u database.User) User {
	return User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		IsOnline:  u.IsOnline,
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
	}
}

func NewUsers(us []database.User) []User {
	return lo.Map(us, func(u database.User, _ int) User { return NewUser(u) })
}

func NewUserStatuses(ss []database.UserStatus) []UserStatus {
	return lo.Map(ss, func(s database.UserStatus, _ int) UserStatus {
		return UserStatus{Username: s.Username, IsOnline: s.IsOnline, LastSeen: s.LastSeen}
	})
}

func NewStats(s database.Stats) Stats {
	return Stats(s)
}
