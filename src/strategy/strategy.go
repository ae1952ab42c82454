// Package strategy holds the per-symbol decision units and the registry that
// builds them from persisted configuration.
//
// A strategy is stateless between calls. Evaluate reads daily history first,
// then the live price as a separate final read, and maps both to BUY, SELL
// or HOLD. Insufficient history is a HOLD, not an error.
package strategy

import (
	"context"
	"encoding/json"
	"time"

	"autotrader/src/model"

	"github.com/shopspring/decimal"
)

// Parameter keys shared by several strategies.
const (
	ParamTrailingStopPct = "trailing_stop_pct"
	ParamMAPeriod        = "ma_period"
	ParamK               = "k"
)

// MarketData is the read side of the broker the strategies need.
type MarketData interface {
	DailyOHLCV(ctx context.Context, symbol string, days int) (model.Candles, error)
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// ParamSpec describes one configurable parameter.
type ParamSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Default     any    `json:"default"`
	Description string `json:"description"`
}

// Strategy is the capability every variant implements.
type Strategy interface {
	Name() string
	Parameters() map[string]any
	ParamSchema() []ParamSpec
	TrailingStopPct() float64
	Evaluate(ctx context.Context, symbol string) (Evaluation, error)
}

// Evaluation is the outcome of one Evaluate call. Price is the trigger price
// and is set only for BUY; CurrentPrice is whatever the last live read
// returned (zero when history was insufficient and no read happened).
type Evaluation struct {
	Signal       model.Signal
	Price        decimal.Decimal
	CurrentPrice decimal.Decimal
	Reason       string
	Indicators   map[string]any
}

func hold(reason string, indicators map[string]any, current decimal.Decimal) Evaluation {
	return Evaluation{
		Signal:       model.SignalHold,
		CurrentPrice: current,
		Reason:       reason,
		Indicators:   indicators,
	}
}

func sell(reason string, indicators map[string]any, current decimal.Decimal) Evaluation {
	return Evaluation{
		Signal:       model.SignalSell,
		CurrentPrice: current,
		Reason:       reason,
		Indicators:   indicators,
	}
}

func buy(reason string, indicators map[string]any, current decimal.Decimal) Evaluation {
	return Evaluation{
		Signal:       model.SignalBuy,
		Price:        current,
		CurrentPrice: current,
		Reason:       reason,
		Indicators:   indicators,
	}
}

// Decision builds the decision log row for this evaluation.
func (e Evaluation) Decision(symbol, strategyName string, action model.DecisionAction, at time.Time) model.DecisionRecord {
	indicators := "{}"
	if len(e.Indicators) > 0 {
		if b, err := json.Marshal(e.Indicators); err == nil {
			indicators = string(b)
		}
	}
	return model.DecisionRecord{
		Timestamp:       at.UTC(),
		Symbol:          symbol,
		StrategyName:    strategyName,
		Signal:          e.Signal,
		Reason:          e.Reason,
		Indicators:      indicators,
		PriceAtDecision: e.CurrentPrice,
		ActionTaken:     action,
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
