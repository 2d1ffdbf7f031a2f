package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StreamEvents pushes a numbered notification every interval until the client
// goes away.
func StreamEvents(interval time.Duration) http.HandlerFunc {
	if interval <= 0 {
		interval = 3 * time.Second
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Accel-Buffering", "no")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		rc := http.NewResponseController(w)
		if err := rc.Flush(); err != nil {
			slog.WarnContext(r.Context(), "event stream cannot flush", "error", err)
			return
		}

		ctx := r.Context()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		count := 0
		for {
			select {
			case <-ticker.C:
				count++
				if _, err := fmt.Fprintf(w, "data: Live notification %d\n\n", count); err != nil {
					slog.DebugContext(ctx, "event stream write failed", "error", err)
					return
				}
				if err := rc.Flush(); err != nil {
					slog.DebugContext(ctx, "could not flush buffer to writer", "error", err)
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}
}
