package handler

import (
	"context"
	"net/http"

	"autotrader/src/portfolio"
)

type StatusProvider interface {
	Status(ctx context.Context) portfolio.Status
}

// StatusHandler serves the dashboard status. It always answers 200; a
// failed balance read is reported in assets_error.
func StatusHandler(p StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, p.Status(r.Context()))
	}
}
