package handler

import (
	"context"
	"net/http"

	"autotrader/src/controller"
	"autotrader/src/model"

	logger "github.com/sirupsen/logrus"
)

type TradeLister interface {
	Latest(ctx context.Context, limit int) ([]model.TradeRecord, error)
}

type DecisionLister interface {
	Latest(ctx context.Context, symbol string, limit int) ([]model.DecisionRecord, error)
}

// TradesHandler lists the most recent trade records, newest first.
func TradesHandler(repo TradeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		trades, err := repo.Latest(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to list trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if trades == nil {
			trades = []model.TradeRecord{}
		}
		writeJSON(w, http.StatusOK, trades)
	}
}

// DecisionsHandler lists decision records, optionally for one symbol.
func DecisionsHandler(repo DecisionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		symbol := controller.NormalizeSymbol(r.URL.Query().Get("symbol"))

		decisions, err := repo.Latest(r.Context(), symbol, limit)
		if err != nil {
			logger.WithError(err).Error("failed to list decisions")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if decisions == nil {
			decisions = []model.DecisionRecord{}
		}
		writeJSON(w, http.StatusOK, decisions)
	}
}
