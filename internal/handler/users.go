package handler

import (
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/johndosdos/hybridchat/internal/auth"
	"github.com/johndosdos/hybridchat/internal/model"
)

// Roster reports the identities currently connected over websocket.
type Roster interface {
	Snapshot() []string
}

// UserStatus lists every other non-admin account with its stored presence.
func UserStatus(db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claims, err := auth.GetClaimsFromContext(ctx)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		statuses, err := db.ListUserStatus(ctx, claims.Username)
		if err != nil {
			slog.ErrorContext(ctx, "failed to load user status", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch users")
			return
		}

		writeJSON(w, http.StatusOK, model.NewUserStatuses(statuses))
	}
}

// OnlineUsers reports the live roster, without the caller.
func OnlineUsers(roster Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.GetClaimsFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		users := lo.Without(roster.Snapshot(), claims.Username)
		writeJSON(w, http.StatusOK, model.OnlineUsers{Users: users, Count: len(users)})
	}
}
