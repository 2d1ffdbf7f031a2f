package handler

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
	Online int    `json:"online"`
}

// Healthz reports liveness along with the number of online identities.
func Healthz(roster Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Online: len(roster.Snapshot())})
	}
}
