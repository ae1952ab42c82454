// Package orders places broker orders and records every attempt.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"autotrader/src/connectors"
	"autotrader/src/metrics"
	"autotrader/src/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// OrderPlacer is the broker side of the executor.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req connectors.OrderRequest) (connectors.OrderResult, error)
}

// TradeStore appends trade records.
type TradeStore interface {
	Create(ctx context.Context, rec *model.TradeRecord) error
}

type Executor struct {
	logger *logrus.Entry
	broker OrderPlacer
	trades TradeStore
	now    func() time.Time
	newRef func() string
}

func NewExecutor(logger *logrus.Entry, broker OrderPlacer, trades TradeStore) *Executor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Executor{
		logger: logger,
		broker: broker,
		trades: trades,
		now:    time.Now,
		newRef: func() string { return uuid.NewString() },
	}
}

// Intent is one order the orchestrator wants placed. Price is the price the
// decision was made at; orders themselves go out as market orders.
type Intent struct {
	Symbol     string
	Side       model.OrderSide
	Quantity   int64
	Price      decimal.Decimal
	RealizedPL decimal.Decimal
	Reason     string
}

// Buy places a market buy.
func (e *Executor) Buy(ctx context.Context, symbol string, quantity int64, price decimal.Decimal) (model.TradeRecord, error) {
	return e.Execute(ctx, Intent{
		Symbol:   symbol,
		Side:     model.SideBuy,
		Quantity: quantity,
		Price:    price,
		Reason:   model.EntryReasonSignal,
	})
}

// Sell places a market sell for an exit.
func (e *Executor) Sell(ctx context.Context, symbol string, quantity int64, price, realizedPL decimal.Decimal, reason string) (model.TradeRecord, error) {
	return e.Execute(ctx, Intent{
		Symbol:     symbol,
		Side:       model.SideSell,
		Quantity:   quantity,
		Price:      price,
		RealizedPL: realizedPL,
		Reason:     reason,
	})
}

// Execute places the order and always returns the record that was written.
// The returned error is the broker error; a failed write of the record is
// logged only.
func (e *Executor) Execute(ctx context.Context, in Intent) (model.TradeRecord, error) {
	rec := model.TradeRecord{
		OrderRef:   e.newRef(),
		Timestamp:  e.now().UTC(),
		Symbol:     in.Symbol,
		Side:       in.Side,
		Price:      in.Price,
		Quantity:   in.Quantity,
		Status:     model.OrderStatusPending,
		RealizedPL: decimal.Zero,
		Reason:     in.Reason,
	}
	if in.Side == model.SideSell {
		rec.RealizedPL = in.RealizedPL
	}

	fields := logrus.Fields{
		"order_ref": rec.OrderRef,
		"symbol":    in.Symbol,
		"side":      in.Side,
		"quantity":  in.Quantity,
		"price":     in.Price.String(),
	}

	var execErr error
	if in.Quantity < 1 {
		execErr = fmt.Errorf("no executable quantity for %s", in.Symbol)
	} else {
		result, err := e.broker.PlaceOrder(ctx, connectors.OrderRequest{
			Symbol:   in.Symbol,
			Side:     in.Side,
			Quantity: in.Quantity,
		})
		rec.BrokerResponse = brokerResponse(result, err)
		execErr = err
	}

	if execErr != nil {
		rec.Status = model.OrderStatusFailed
		rec.RealizedPL = decimal.Zero
		fields["rejected"] = connectors.IsOrderRejected(execErr)
		e.logger.WithError(execErr).WithFields(fields).Error("order failed")
	} else {
		rec.Status = model.OrderStatusExecuted
		e.logger.WithFields(fields).Info("order executed")
	}

	metrics.Orders.WithLabelValues(string(rec.Side), string(rec.Status)).Inc()

	if e.trades != nil {
		if err := e.trades.Create(ctx, &rec); err != nil {
			e.logger.WithError(err).WithFields(fields).Error("failed to persist trade record")
		}
	}

	return rec, execErr
}

// brokerResponse keeps the raw broker body when there is one, otherwise a
// small JSON summary of the outcome.
func brokerResponse(result connectors.OrderResult, err error) string {
	if result.Raw != "" {
		return result.Raw
	}
	summary := map[string]string{}
	if result.OrderNo != "" {
		summary["order_no"] = result.OrderNo
	}
	if result.Code != "" {
		summary["code"] = result.Code
	}
	if result.Message != "" {
		summary["message"] = result.Message
	}
	if err != nil {
		summary["error"] = err.Error()
		var rej *connectors.OrderRejectedError
		if errors.As(err, &rej) {
			summary["code"] = rej.Code
		}
	}
	if len(summary) == 0 {
		return ""
	}
	b, _ := json.Marshal(summary)
	return string(b)
}
