package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/johndosdos/hybridchat/internal/auth"
	"github.com/johndosdos/hybridchat/internal/model"
)

// GeneralMessages returns the most recent public chat history, oldest first.
func GeneralMessages(db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		msgs, err := db.ListGeneralMessages(ctx, historyLimit)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "failed to load general messages", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
			return
		}

		writeJSON(w, http.StatusOK, model.NewChatMessages(msgs))
	}
}

// PrivateMessages returns the conversation between the caller and the
// {username} URL parameter.
func PrivateMessages(db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claims, err := auth.GetClaimsFromContext(ctx)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		peer := chi.URLParam(r, "username")
		msgs, err := db.ListPrivateMessages(ctx, claims.Username, peer, historyLimit)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "failed to load private messages",
				"error", err,
				"username", claims.Username,
				"peer", peer)
			writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
			return
		}

		writeJSON(w, http.StatusOK, model.NewChatMessages(msgs))
	}
}
