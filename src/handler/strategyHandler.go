package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"autotrader/src/controller"
	"autotrader/src/model"
	"autotrader/src/strategy"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

type StrategyCatalog interface {
	List() []strategy.Descriptor
	Build(name string, data strategy.MarketData, p strategy.Params) (strategy.Strategy, error)
}

type AssignmentStore interface {
	ActiveFor(ctx context.Context, symbol string) (*model.StrategyAssignment, error)
	Assign(ctx context.Context, symbol, strategyName string, params map[string]any) (*model.StrategyAssignment, error)
}

type strategyConfigPayload struct {
	Symbol       string         `json:"symbol"`
	StrategyName string         `json:"strategy_name"`
	Parameters   map[string]any `json:"parameters"`
}

// ListStrategiesHandler returns every registered strategy with its schema.
func ListStrategiesHandler(catalog StrategyCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"strategies": catalog.List()})
	}
}

// GetStrategyConfigHandler returns the active assignment for {symbol}. A
// symbol without one reports a null strategy_name.
func GetStrategyConfigHandler(store AssignmentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := controller.NormalizeSymbol(chi.URLParam(r, "symbol"))
		if symbol == "" {
			http.Error(w, "symbol is required", http.StatusBadRequest)
			return
		}

		row, err := store.ActiveFor(r.Context(), symbol)
		if err != nil {
			logger.WithError(err).WithField("symbol", symbol).Error("failed to load strategy config")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if row == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"symbol":        symbol,
				"strategy_name": nil,
				"parameters":    map[string]any{},
			})
			return
		}
		params, _ := row.Params()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"symbol":        symbol,
			"strategy_name": row.StrategyName,
			"parameters":    params,
			"updated_at":    row.UpdatedAt,
		})
	}
}

// SaveStrategyConfigHandler assigns a strategy to a symbol. The strategy
// must be registered and accept the parameters.
func SaveStrategyConfigHandler(store AssignmentStore, catalog StrategyCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload strategyConfigPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid strategy config payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		symbol := controller.NormalizeSymbol(payload.Symbol)
		name := strings.TrimSpace(payload.StrategyName)
		if symbol == "" || name == "" {
			http.Error(w, "symbol and strategy_name are required", http.StatusBadRequest)
			return
		}
		if payload.Parameters == nil {
			payload.Parameters = map[string]any{}
		}
		if _, err := catalog.Build(name, nil, strategy.Params(payload.Parameters)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if _, err := store.Assign(r.Context(), symbol, name, payload.Parameters); err != nil {
			logger.WithError(err).WithField("symbol", symbol).Error("failed to save strategy config")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"symbol":        symbol,
			"strategy_name": name,
		})
	}
}
