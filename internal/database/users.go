package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, first_name, last_name, username, email, is_admin, is_online, last_seen, created_at`

func scanUser(row scanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email,
		&u.IsAdmin, &u.IsOnline, &u.LastSeen, &u.CreatedAt)
	return u, err
}

type CreateUserParams struct {
	FirstName      string
	LastName       string
	Username       string
	Email          string
	HashedPassword string
	IsAdmin        bool
}

const createUser = `
INSERT INTO users (first_name, last_name, username, email, hashed_password, is_admin)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.FirstName, arg.LastName, arg.Username, arg.Email, arg.HashedPassword, arg.IsAdmin)
	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateUser
		}
		return User{}, fmt.Errorf("database: create user: %w", err)
	}
	return u, nil
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, getUserByUsername, username))
	if err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}

const getUserWithPasswordByEmail = `SELECT ` + userColumns + `, hashed_password FROM users WHERE email = $1`

func (q *Queries) GetUserWithPasswordByEmail(ctx context.Context, email string) (UserWithPassword, error) {
	var u UserWithPassword
	err := q.db.QueryRow(ctx, getUserWithPasswordByEmail, email).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email,
		&u.IsAdmin, &u.IsOnline, &u.LastSeen, &u.CreatedAt, &u.HashedPassword)
	if err != nil {
		return UserWithPassword{}, notFound(err)
	}
	return u, nil
}

const userExists = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR username = $2)`

func (q *Queries) UserExists(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	if err := q.db.QueryRow(ctx, userExists, email, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("database: user exists: %w", err)
	}
	return exists, nil
}

const setUserOnline = `UPDATE users SET is_online = $2, last_seen = NOW() WHERE username = $1`

// SetUserOnline records a presence change. Unknown usernames are ignored.
func (q *Queries) SetUserOnline(ctx context.Context, username string, online bool) error {
	if _, err := q.db.Exec(ctx, setUserOnline, username, online); err != nil {
		return fmt.Errorf("database: set user online: %w", err)
	}
	return nil
}

const resetPresence = `UPDATE users SET is_online = FALSE WHERE is_online`

// ResetPresence marks everyone offline. The live registry starts empty on
// boot, so rows left online by a previous process are stale.
func (q *Queries) ResetPresence(ctx context.Context) error {
	if _, err := q.db.Exec(ctx, resetPresence); err != nil {
		return fmt.Errorf("database: reset presence: %w", err)
	}
	return nil
}

const listUserStatus = `
SELECT username, is_online, last_seen
FROM users
WHERE username != $1 AND NOT is_admin
ORDER BY is_online DESC, last_seen DESC`

func (q *Queries) ListUserStatus(ctx context.Context, excluding string) ([]UserStatus, error) {
	rows, err := q.db.Query(ctx, listUserStatus, excluding)
	if err != nil {
		return nil, fmt.Errorf("database: list user status: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserStatus, error) {
		var s UserStatus
		err := row.Scan(&s.Username, &s.IsOnline, &s.LastSeen)
		return s, err
	})
}

const listUsers = `SELECT ` + userColumns + ` FROM users WHERE NOT is_admin ORDER BY created_at DESC`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, fmt.Errorf("database: list users: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		return scanUser(row)
	})
}

const getStats = `
SELECT
    (SELECT COUNT(*) FROM users WHERE NOT is_admin),
    (SELECT COUNT(*) FROM users WHERE NOT is_admin AND created_at::date = CURRENT_DATE),
    (SELECT COUNT(*) FROM users WHERE NOT is_admin AND is_online),
    (SELECT COUNT(*) FROM messages),
    (SELECT COUNT(*) FROM messages WHERE created_at::date = CURRENT_DATE)`

func (q *Queries) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	err := q.db.QueryRow(ctx, getStats).Scan(
		&s.TotalUsers, &s.TodayUsers, &s.OnlineUsers, &s.TotalMessages, &s.TodayMessages)
	if err != nil {
		return Stats{}, fmt.Errorf("database: stats: %w", err)
	}
	return s, nil
}
