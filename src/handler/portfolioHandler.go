package handler

import (
	"context"
	"net/http"

	"autotrader/src/model"
	"autotrader/src/portfolio"

	logger "github.com/sirupsen/logrus"
)

type PortfolioReader interface {
	History(ctx context.Context, days int) ([]model.PortfolioSnapshot, error)
	Performance(ctx context.Context) (portfolio.Performance, error)
}

// PortfolioHistoryHandler returns snapshots of the last ?days (1..90, default 7).
func PortfolioHistoryHandler(p PortfolioReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, ok := queryInt(r, "days", portfolio.DefaultHistoryDays)
		if !ok {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}

		rows, err := p.History(r.Context(), days)
		if portfolio.IsInvalidDays(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to load portfolio history")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func PortfolioPerformanceHandler(p PortfolioReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perf, err := p.Performance(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to load portfolio performance")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, perf)
	}
}
