package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusExecuted OrderStatus = "EXECUTED"
	OrderStatusFailed   OrderStatus = "FAILED"
)

// TradeRecord is the append-only log entry written for every attempted order.
// Rows are never updated after insertion.
type TradeRecord struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderRef       string          `gorm:"size:36;index" json:"order_ref"`
	Timestamp      time.Time       `gorm:"index" json:"timestamp"`
	Symbol         string          `gorm:"size:20;index" json:"symbol"`
	Side           OrderSide       `gorm:"size:4;index" json:"side"`
	Price          decimal.Decimal `gorm:"type:numeric" json:"price"`
	Quantity       int64           `json:"quantity"`
	Status         OrderStatus     `gorm:"size:10;index" json:"status"`
	BrokerResponse string          `gorm:"type:text" json:"broker_response,omitempty"`
	RealizedPL     decimal.Decimal `gorm:"type:numeric" json:"realized_pl"`
	Reason         string          `gorm:"size:50" json:"reason,omitempty"`
}

// TableName keeps the historical table name.
func (TradeRecord) TableName() string {
	return "trade_logs"
}

// Executed reports whether the broker accepted the order.
func (t TradeRecord) Executed() bool {
	return t.Status == OrderStatusExecuted
}

// Exit reasons recorded on SELL trades.
const (
	ExitReasonSignal      = "signal"
	ExitReasonStop        = "trailing_stop"
	ExitReasonLiquidation = "liquidation"
	EntryReasonSignal     = "entry"
)

// TradeEvent is the payload queued for observers after a fill.
type TradeEvent struct {
	Type     string          `json:"type"`
	Symbol   string          `json:"symbol"`
	Side     OrderSide       `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Reason   string          `json:"reason,omitempty"`
}

// NewTradeEvent builds a trade_event message from an executed record.
func NewTradeEvent(rec TradeRecord) TradeEvent {
	return TradeEvent{
		Type:     "trade_event",
		Symbol:   rec.Symbol,
		Side:     rec.Side,
		Price:    rec.Price,
		Quantity: rec.Quantity,
		Reason:   rec.Reason,
	}
}
