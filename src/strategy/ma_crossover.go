package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const NameMACrossover = "ma_crossover"

// MACrossover trades the short/long moving average cross between the
// previous bar and the latest completed bar.
type MACrossover struct {
	data         MarketData
	shortPeriod  int
	longPeriod   int
	trailingStop float64
}

func MACrossoverSchema() []ParamSpec {
	return []ParamSpec{
		{Name: "short_period", Type: "int", Default: 5, Description: "Short moving average period (days)"},
		{Name: "long_period", Type: "int", Default: 20, Description: "Long moving average period (days)"},
		trailingSpec(5.0),
	}
}

func NewMACrossover(data MarketData, p Params) (Strategy, error) {
	s := &MACrossover{data: data}
	var err error
	if s.shortPeriod, err = p.int("short_period", 5); err != nil {
		return nil, err
	}
	if err = positiveInt("short_period", s.shortPeriod); err != nil {
		return nil, err
	}
	if s.longPeriod, err = p.int("long_period", 20); err != nil {
		return nil, err
	}
	if s.longPeriod <= s.shortPeriod {
		return nil, fmt.Errorf("long_period %d must exceed short_period %d", s.longPeriod, s.shortPeriod)
	}
	if s.trailingStop, err = trailingParam(p, 5.0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MACrossover) Name() string { return NameMACrossover }

func (s *MACrossover) ParamSchema() []ParamSpec { return MACrossoverSchema() }

func (s *MACrossover) TrailingStopPct() float64 { return s.trailingStop }

func (s *MACrossover) Parameters() map[string]any {
	return map[string]any{
		"short_period":       s.shortPeriod,
		"long_period":        s.longPeriod,
		ParamTrailingStopPct: s.trailingStop,
	}
}

func (s *MACrossover) Evaluate(ctx context.Context, symbol string) (Evaluation, error) {
	days := s.longPeriod + 3
	candles, err := s.data.DailyOHLCV(ctx, symbol, days)
	if err != nil {
		return Evaluation{}, fmt.Errorf("daily ohlcv %s: %w", symbol, err)
	}
	if len(candles) < days {
		return hold(fmt.Sprintf("insufficient history for MA%d cross (%d bars)", s.longPeriod, len(candles)), nil, decimal.Zero), nil
	}

	// closes[0] is the last completed bar.
	closes := candles.Closes()[1:days]
	shortMA, _ := SMA(closes[:s.shortPeriod])
	longMA, _ := SMA(closes[:s.longPeriod])
	prevShort, _ := SMA(closes[1 : s.shortPeriod+1])
	prevLong, _ := SMA(closes[1 : s.longPeriod+1])

	current, err := s.data.CurrentPrice(ctx, symbol)
	if err != nil {
		return Evaluation{}, fmt.Errorf("current price %s: %w", symbol, err)
	}
	indicators := map[string]any{
		"short_ma":      round2(shortMA),
		"long_ma":       round2(longMA),
		"prev_short_ma": round2(prevShort),
		"prev_long_ma":  round2(prevLong),
		"current_price": current.InexactFloat64(),
	}

	if prevShort < prevLong && shortMA >= longMA {
		return buy("short MA crossed above long MA", indicators, current), nil
	}
	if prevShort > prevLong && shortMA <= longMA {
		return sell("short MA crossed below long MA", indicators, current), nil
	}
	return hold(fmt.Sprintf("no cross (short=%.0f, long=%.0f)", shortMA, longMA), indicators, current), nil
}
