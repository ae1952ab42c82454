package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Position is the local belief about one tracked symbol.
// JSON keys match the on-disk ledger file format.
type Position struct {
	Held       bool            `json:"bought"`
	EntryPrice decimal.Decimal `json:"purchase_price"`
	Quantity   int64           `json:"quantity"`
	StopPrice  decimal.Decimal `json:"stop_price"`
}

// ClosedPosition returns the flat state every symbol starts in.
func ClosedPosition() Position {
	return Position{
		Held:       false,
		EntryPrice: decimal.Zero,
		Quantity:   0,
		StopPrice:  decimal.Zero,
	}
}

// OpenPosition returns a held position.
func OpenPosition(entry decimal.Decimal, quantity int64, stop decimal.Decimal) Position {
	return Position{
		Held:       true,
		EntryPrice: entry,
		Quantity:   quantity,
		StopPrice:  stop,
	}
}

// Validate checks the closed-state and sign invariants.
func (p Position) Validate() error {
	if p.Quantity < 0 {
		return fmt.Errorf("negative quantity %d", p.Quantity)
	}
	if p.StopPrice.IsNegative() {
		return fmt.Errorf("negative stop price %s", p.StopPrice.String())
	}
	if !p.Held && (p.Quantity != 0 || !p.StopPrice.IsZero()) {
		return fmt.Errorf("closed position carries quantity=%d stop=%s", p.Quantity, p.StopPrice.String())
	}
	return nil
}

// CostBasis is entry price times quantity; zero when flat.
func (p Position) CostBasis() decimal.Decimal {
	if !p.Held {
		return decimal.Zero
	}
	return p.EntryPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// UnrealizedPL at the given mark price.
func (p Position) UnrealizedPL(price decimal.Decimal) decimal.Decimal {
	if !p.Held {
		return decimal.Zero
	}
	return price.Sub(p.EntryPrice).Mul(decimal.NewFromInt(p.Quantity))
}

const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

// Status returns the lifecycle label used in status payloads.
func (p Position) Status() string {
	if p.Held {
		return PositionStatusOpen
	}
	return PositionStatusClosed
}
