package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const NameRSI = "rsi"

// RSIStrategy buys oversold and sells overbought readings.
type RSIStrategy struct {
	data         MarketData
	period       int
	oversold     float64
	overbought   float64
	trailingStop float64
}

func RSISchema() []ParamSpec {
	return []ParamSpec{
		{Name: "period", Type: "int", Default: 14, Description: "RSI period (days)"},
		{Name: "oversold", Type: "float", Default: 30.0, Description: "Buy below this RSI"},
		{Name: "overbought", Type: "float", Default: 70.0, Description: "Sell above this RSI"},
		trailingSpec(5.0),
	}
}

func NewRSI(data MarketData, p Params) (Strategy, error) {
	s := &RSIStrategy{data: data}
	var err error
	if s.period, err = p.int("period", 14); err != nil {
		return nil, err
	}
	if s.period < 2 {
		return nil, fmt.Errorf("parameter period must be >= 2, got %d", s.period)
	}
	if s.oversold, err = p.float("oversold", 30); err != nil {
		return nil, err
	}
	if s.overbought, err = p.float("overbought", 70); err != nil {
		return nil, err
	}
	if s.oversold < 0 || s.overbought > 100 || s.oversold >= s.overbought {
		return nil, fmt.Errorf("rsi thresholds must satisfy 0 <= oversold < overbought <= 100, got %v/%v", s.oversold, s.overbought)
	}
	if s.trailingStop, err = trailingParam(p, 5.0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RSIStrategy) Name() string { return NameRSI }

func (s *RSIStrategy) ParamSchema() []ParamSpec { return RSISchema() }

func (s *RSIStrategy) TrailingStopPct() float64 { return s.trailingStop }

func (s *RSIStrategy) Parameters() map[string]any {
	return map[string]any{
		"period":             s.period,
		"oversold":           s.oversold,
		"overbought":         s.overbought,
		ParamTrailingStopPct: s.trailingStop,
	}
}

func (s *RSIStrategy) Evaluate(ctx context.Context, symbol string) (Evaluation, error) {
	days := s.period + 20
	candles, err := s.data.DailyOHLCV(ctx, symbol, days)
	if err != nil {
		return Evaluation{}, fmt.Errorf("daily ohlcv %s: %w", symbol, err)
	}
	if len(candles) < days {
		return hold(fmt.Sprintf("insufficient history for RSI%d (%d bars)", s.period, len(candles)), nil, decimal.Zero), nil
	}

	value, ok := RSI(ascending(candles.Closes(), 1, days), s.period)
	if !ok {
		return hold(fmt.Sprintf("RSI%d unavailable", s.period), nil, decimal.Zero), nil
	}

	current, err := s.data.CurrentPrice(ctx, symbol)
	if err != nil {
		return Evaluation{}, fmt.Errorf("current price %s: %w", symbol, err)
	}
	indicators := map[string]any{
		"rsi":           round2(value),
		"oversold":      s.oversold,
		"overbought":    s.overbought,
		"current_price": current.InexactFloat64(),
	}

	switch {
	case value < s.oversold:
		return buy(fmt.Sprintf("RSI %.1f below %.0f", value, s.oversold), indicators, current), nil
	case value > s.overbought:
		return sell(fmt.Sprintf("RSI %.1f above %.0f", value, s.overbought), indicators, current), nil
	default:
		return hold(fmt.Sprintf("RSI %.1f in range", value), indicators, current), nil
	}
}
