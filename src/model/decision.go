package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

type DecisionAction string

const (
	ActionExecuted DecisionAction = "EXECUTED"
	ActionSkipped  DecisionAction = "SKIPPED"
	ActionFailed   DecisionAction = "FAILED"
)

// DecisionRecord captures one strategy evaluation, whether or not an order followed.
type DecisionRecord struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Timestamp       time.Time       `gorm:"index" json:"timestamp"`
	Symbol          string          `gorm:"size:20;index" json:"symbol"`
	StrategyName    string          `gorm:"size:50" json:"strategy_name"`
	Signal          Signal          `gorm:"size:4" json:"signal"`
	Reason          string          `gorm:"size:255" json:"decision_reason"`
	Indicators      string          `gorm:"type:text" json:"-"`
	PriceAtDecision decimal.Decimal `gorm:"type:numeric" json:"current_price"`
	ActionTaken     DecisionAction  `gorm:"size:10" json:"action_taken"`
}

func (DecisionRecord) TableName() string {
	return "decision_logs"
}

// IndicatorValues decodes the stored indicator snapshot. Undecodable
// snapshots come back empty.
func (d DecisionRecord) IndicatorValues() map[string]any {
	out := map[string]any{}
	if d.Indicators == "" {
		return out
	}
	_ = json.Unmarshal([]byte(d.Indicators), &out)
	return out
}

// MarshalJSON inlines the indicator snapshot as an object.
func (d DecisionRecord) MarshalJSON() ([]byte, error) {
	type alias DecisionRecord
	return json.Marshal(struct {
		alias
		IndicatorValues map[string]any `json:"indicator_values"`
	}{
		alias:           alias(d),
		IndicatorValues: d.IndicatorValues(),
	})
}
