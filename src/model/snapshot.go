package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is a point-in-time account summary. Never updated.
type PortfolioSnapshot struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time       `gorm:"index" json:"timestamp"`
	TotalAssets    decimal.Decimal `gorm:"type:numeric" json:"total_assets"`
	CashBalance    decimal.Decimal `gorm:"type:numeric" json:"cash_balance"`
	HoldingsValue  decimal.Decimal `gorm:"type:numeric" json:"holdings_value"`
	RealizedPL     decimal.Decimal `gorm:"type:numeric" json:"realized_pnl"`
	UnrealizedPL   decimal.Decimal `gorm:"type:numeric" json:"unrealized_pnl"`
	DailyReturnPct decimal.Decimal `gorm:"type:numeric" json:"daily_return_pct"`
}

func (PortfolioSnapshot) TableName() string {
	return "portfolio_snapshots"
}
