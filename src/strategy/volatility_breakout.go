package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	NameVolatilityBreakout = "volatility_breakout"

	volumeAvgDays = 20
)

// VolatilityBreakout buys when price clears todayOpen + prevRange*k while
// trading above its ma_period-day average.
type VolatilityBreakout struct {
	data         MarketData
	k            float64
	maPeriod     int
	trailingStop float64
	adaptiveK    bool
	gapPct       float64
	volumeRatio  float64
}

func VolatilityBreakoutSchema() []ParamSpec {
	return []ParamSpec{
		{Name: ParamK, Type: "float", Default: 0.5, Description: "Breakout factor applied to the previous day's range (0-1)"},
		{Name: ParamMAPeriod, Type: "int", Default: 20, Description: "Trend filter moving average period (days)"},
		trailingSpec(3.0),
		{Name: "adaptive_k", Type: "bool", Default: false, Description: "Derive k from the previous day's range-to-close ratio"},
		{Name: "gap_pct", Type: "float", Default: 0.0, Description: "Skip entries when today opens this far above the previous close (%), 0 disables"},
		{Name: "volume_ratio", Type: "float", Default: 0.0, Description: "Require today's volume >= 20-day average times this ratio, 0 disables"},
	}
}

func NewVolatilityBreakout(data MarketData, p Params) (Strategy, error) {
	s := &VolatilityBreakout{data: data}
	var err error
	if s.k, err = p.float(ParamK, 0.5); err != nil {
		return nil, err
	}
	if s.k < 0 || s.k > 1 {
		return nil, fmt.Errorf("parameter %s must be in [0, 1], got %v", ParamK, s.k)
	}
	if s.maPeriod, err = p.int(ParamMAPeriod, 20); err != nil {
		return nil, err
	}
	if err = positiveInt(ParamMAPeriod, s.maPeriod); err != nil {
		return nil, err
	}
	if s.trailingStop, err = trailingParam(p, 3.0); err != nil {
		return nil, err
	}
	if s.adaptiveK, err = p.bool("adaptive_k", false); err != nil {
		return nil, err
	}
	if s.gapPct, err = p.float("gap_pct", 0); err != nil {
		return nil, err
	}
	if err = nonNegative("gap_pct", s.gapPct); err != nil {
		return nil, err
	}
	if s.volumeRatio, err = p.float("volume_ratio", 0); err != nil {
		return nil, err
	}
	if err = nonNegative("volume_ratio", s.volumeRatio); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *VolatilityBreakout) Name() string { return NameVolatilityBreakout }

func (s *VolatilityBreakout) ParamSchema() []ParamSpec { return VolatilityBreakoutSchema() }

func (s *VolatilityBreakout) TrailingStopPct() float64 { return s.trailingStop }

func (s *VolatilityBreakout) Parameters() map[string]any {
	return map[string]any{
		ParamK:               s.k,
		ParamMAPeriod:        s.maPeriod,
		ParamTrailingStopPct: s.trailingStop,
		"adaptive_k":         s.adaptiveK,
		"gap_pct":            s.gapPct,
		"volume_ratio":       s.volumeRatio,
	}
}

// AdaptiveK picks k from the previous day's range-to-close ratio: wide
// ranges get a conservative 0.3, narrow ones 0.65.
func AdaptiveK(rangeRatio float64) float64 {
	switch {
	case rangeRatio > 0.05:
		return 0.3
	case rangeRatio < 0.02:
		return 0.65
	default:
		return 0.45
	}
}

func (s *VolatilityBreakout) Evaluate(ctx context.Context, symbol string) (Evaluation, error) {
	days := s.maPeriod + 2
	if s.volumeRatio > 0 && days < volumeAvgDays+1 {
		days = volumeAvgDays + 1
	}
	candles, err := s.data.DailyOHLCV(ctx, symbol, days)
	if err != nil {
		return Evaluation{}, fmt.Errorf("daily ohlcv %s: %w", symbol, err)
	}
	if len(candles) < s.maPeriod+1 {
		return hold(fmt.Sprintf("insufficient history for MA%d (%d bars)", s.maPeriod, len(candles)), nil, decimal.Zero), nil
	}

	closes := candles.Closes()
	ma, _ := SMA(closes[1 : s.maPeriod+1])

	current, err := s.data.CurrentPrice(ctx, symbol)
	if err != nil {
		return Evaluation{}, fmt.Errorf("current price %s: %w", symbol, err)
	}

	k := s.k
	indicators := map[string]any{
		"ma":            round2(ma),
		"current_price": current.InexactFloat64(),
		"k":             k,
	}

	if current.InexactFloat64() <= ma {
		return hold(fmt.Sprintf("downtrend (price <= MA%d)", s.maPeriod), indicators, current), nil
	}

	today, prev := candles[0], candles[1]
	if s.adaptiveK && prev.Close.IsPositive() {
		ratio := prev.Range().Div(prev.Close).InexactFloat64()
		k = AdaptiveK(ratio)
		indicators["k"] = k
		indicators["range_ratio"] = round2(ratio * 100)
	}

	if s.gapPct > 0 {
		limit := prev.Close.Mul(decimal.NewFromFloat(1 + s.gapPct/100))
		if today.Open.GreaterThanOrEqual(limit) {
			indicators["gap_limit"] = limit.Round(2).InexactFloat64()
			return hold(fmt.Sprintf("gap up open %s >= %s", today.Open.String(), limit.Round(0).String()), indicators, current), nil
		}
	}

	volatility := prev.Range()
	target := today.Open.Add(volatility.Mul(decimal.NewFromFloat(k)))
	indicators["target_price"] = target.Round(2).InexactFloat64()
	indicators["volatility"] = volatility.Round(2).InexactFloat64()

	if current.LessThan(target) {
		return hold(fmt.Sprintf("target not reached (price < %s)", target.Round(0).String()), indicators, current), nil
	}

	if s.volumeRatio > 0 {
		end := volumeAvgDays + 1
		if end > len(candles) {
			end = len(candles)
		}
		avg, ok := SMA(candles[1:end].Volumes())
		if ok && avg > 0 {
			need := avg * s.volumeRatio
			indicators["avg_volume"] = round2(avg)
			if today.Volume.InexactFloat64() < need {
				return hold(fmt.Sprintf("volume %s below %.0f", today.Volume.String(), need), indicators, current), nil
			}
		}
	}

	return buy(fmt.Sprintf("breakout (price >= target %s)", target.Round(0).String()), indicators, current), nil
}
