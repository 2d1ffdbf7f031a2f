package handler

import (
	"log/slog"
	"net/http"

	"github.com/johndosdos/hybridchat/internal/model"
)

func AdminStats(db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.GetStats(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to load admin stats", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch stats")
			return
		}
		writeJSON(w, http.StatusOK, model.NewStats(stats))
	}
}

func AdminUsers(db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := db.ListUsers(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to load users", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch users")
			return
		}
		writeJSON(w, http.StatusOK, model.NewUsers(users))
	}
}

// AdminMessages returns the latest messages of every kind, newest first.
func AdminMessages(db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := db.ListRecentMessages(r.Context(), adminHistoryLimit)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to load messages", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
			return
		}
		writeJSON(w, http.StatusOK, model.NewChatMessages(msgs))
	}
}
