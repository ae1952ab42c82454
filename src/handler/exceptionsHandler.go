package handler

import (
	"context"
	"net/http"

	"autotrader/src/model"

	logger "github.com/sirupsen/logrus"
)

type ExceptionLister interface {
	Latest(ctx context.Context, limit int) ([]model.Exception, error)
}

// ExceptionsHandler lists the most recently captured system exceptions.
func ExceptionsHandler(repo ExceptionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		rows, err := repo.Latest(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to list exceptions")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []model.Exception{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}
