package controller

import (
	"context"
	"errors"
	"fmt"

	"autotrader/src/model"
)

// LiquidateAll sells every held position at market regardless of strategy
// state or the trading toggle. It returns how many positions were closed
// and the joined errors of the ones that were not.
func (c *TradingController) LiquidateAll(ctx context.Context) (int, error) {
	c.run.Lock()
	defer c.run.Unlock()

	held := c.deps.Ledger.HeldSymbols()
	c.log.WithField("positions", len(held)).Info("Liquidating all positions")

	closed := 0
	var errs []error
	for _, symbol := range held {
		pos, _ := c.deps.Ledger.Get(symbol)
		if !pos.Held {
			continue
		}

		price, err := c.deps.Account.CurrentPrice(ctx, symbol)
		if err != nil || !price.IsPositive() {
			c.log.WithField("symbol", symbol).WithError(err).Warn("Price unavailable, booking liquidation at entry price")
			price = pos.EntryPrice
		}

		if err := c.exit(ctx, symbol, pos, price, model.ExitReasonLiquidation, nil); err != nil {
			errs = append(errs, fmt.Errorf("liquidate %s: %w", symbol, err))
			continue
		}
		closed++
	}

	if len(errs) > 0 {
		return closed, errors.Join(errs...)
	}
	return closed, nil
}
