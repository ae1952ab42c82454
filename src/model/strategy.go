package model

import (
	"encoding/json"
	"time"
)

// StrategyAssignment overrides the default strategy for one symbol.
// Only the most recently updated active row per symbol is honoured.
type StrategyAssignment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Symbol       string    `gorm:"size:20;not null;index" json:"symbol"`
	StrategyName string    `gorm:"size:50;not null" json:"strategy_name"`
	Parameters   string    `gorm:"type:text" json:"-"`
	Active       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`
}

func (StrategyAssignment) TableName() string {
	return "strategy_configs"
}

// Params decodes the stored parameter JSON.
func (s StrategyAssignment) Params() (map[string]any, error) {
	out := map[string]any{}
	if s.Parameters == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s.Parameters), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetParams encodes params into the Parameters column.
func (s *StrategyAssignment) SetParams(params map[string]any) error {
	if params == nil {
		params = map[string]any{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return err
	}
	s.Parameters = string(b)
	return nil
}

// MarshalJSON exposes parameters as an object.
func (s StrategyAssignment) MarshalJSON() ([]byte, error) {
	type alias StrategyAssignment
	params, _ := s.Params()
	return json.Marshal(struct {
		alias
		Parameters map[string]any `json:"parameters"`
	}{alias: alias(s), Parameters: params})
}
