package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const NameBollinger = "bollinger"

// Bollinger buys at the lower band and sells at the upper band.
type Bollinger struct {
	data         MarketData
	period       int
	stdDev       float64
	trailingStop float64
}

func BollingerSchema() []ParamSpec {
	return []ParamSpec{
		{Name: "period", Type: "int", Default: 20, Description: "Moving average and deviation window (days)"},
		{Name: "std_dev", Type: "float", Default: 2.0, Description: "Band width in standard deviations"},
		trailingSpec(5.0),
	}
}

func NewBollinger(data MarketData, p Params) (Strategy, error) {
	s := &Bollinger{data: data}
	var err error
	if s.period, err = p.int("period", 20); err != nil {
		return nil, err
	}
	if s.period < 2 {
		return nil, fmt.Errorf("parameter period must be >= 2, got %d", s.period)
	}
	if s.stdDev, err = p.float("std_dev", 2.0); err != nil {
		return nil, err
	}
	if s.stdDev <= 0 {
		return nil, fmt.Errorf("parameter std_dev must be > 0, got %v", s.stdDev)
	}
	if s.trailingStop, err = trailingParam(p, 5.0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Bollinger) Name() string { return NameBollinger }

func (s *Bollinger) ParamSchema() []ParamSpec { return BollingerSchema() }

func (s *Bollinger) TrailingStopPct() float64 { return s.trailingStop }

func (s *Bollinger) Parameters() map[string]any {
	return map[string]any{
		"period":             s.period,
		"std_dev":            s.stdDev,
		ParamTrailingStopPct: s.trailingStop,
	}
}

func (s *Bollinger) Evaluate(ctx context.Context, symbol string) (Evaluation, error) {
	days := s.period + 5
	candles, err := s.data.DailyOHLCV(ctx, symbol, days)
	if err != nil {
		return Evaluation{}, fmt.Errorf("daily ohlcv %s: %w", symbol, err)
	}
	if len(candles) < days {
		return hold(fmt.Sprintf("insufficient history for bands (%d bars)", len(candles)), nil, decimal.Zero), nil
	}

	// The window ends at the last completed bar.
	bands, _ := BollingerBands(ascending(candles.Closes(), 1, s.period+1), s.period, s.stdDev)

	current, err := s.data.CurrentPrice(ctx, symbol)
	if err != nil {
		return Evaluation{}, fmt.Errorf("current price %s: %w", symbol, err)
	}
	price := current.InexactFloat64()
	indicators := map[string]any{
		"upper":         round2(bands.Upper),
		"lower":         round2(bands.Lower),
		"ma":            round2(bands.Middle),
		"current_price": price,
	}

	switch {
	case price <= bands.Lower:
		return buy("price at or below lower band", indicators, current), nil
	case price >= bands.Upper:
		return sell("price at or above upper band", indicators, current), nil
	default:
		return hold(fmt.Sprintf("inside bands (upper=%.0f, lower=%.0f)", bands.Upper, bands.Lower), indicators, current), nil
	}
}
