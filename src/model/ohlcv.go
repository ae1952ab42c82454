package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one daily bar as returned by the broker.
type Candle struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
	Symbol string          `json:"symbol"`
}

// Range is high minus low.
func (c Candle) Range() decimal.Decimal {
	return c.High.Sub(c.Low)
}

// Candles is a daily series ordered newest first.
type Candles []Candle

// Closes returns closing prices as floats in the series order.
func (cs Candles) Closes() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close.InexactFloat64()
	}
	return out
}

// Volumes returns volumes as floats in the series order.
func (cs Candles) Volumes() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Volume.InexactFloat64()
	}
	return out
}

// Holding is one broker-reported position row.
type Holding struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name,omitempty"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// Candidate is a symbol surfaced by a discovery query.
type Candidate struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name,omitempty"`
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}
