// Package scoring ranks discovery candidates by a blend of volume surge,
// daily change, distance above the 20-day average, and prior-day range.
package scoring

import (
	"context"
	"math"
	"sort"

	"autotrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

const (
	WeightVolume      = 0.3
	WeightDailyChange = 0.2
	WeightMADistance  = 0.2
	WeightVolatility  = 0.3

	maPeriod = 20
	neutral  = 0.5
)

type MarketData interface {
	DailyOHLCV(ctx context.Context, symbol string, days int) (model.Candles, error)
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type Service struct {
	data MarketData
	log  *logger.Entry
}

func NewService(data MarketData, log *logger.Entry) *Service {
	if log == nil {
		log = logger.WithField("component", "scoring")
	}
	return &Service{data: data, log: log}
}

// inputs are the history-derived figures; nil means unavailable.
type inputs struct {
	todayVolume *float64
	avgVolume   *float64
	ma20        *float64
	prevClose   *float64
	rangeRatio  *float64
}

func ptr(v float64) *float64 { return &v }

func (s *Service) history(ctx context.Context, symbol string) inputs {
	var in inputs
	bars, err := s.data.DailyOHLCV(ctx, symbol, maPeriod+2)
	if err != nil {
		s.log.WithField("symbol", symbol).WithError(err).Debug("Score history unavailable")
		return in
	}
	if len(bars) < maPeriod+1 {
		return in
	}

	window := bars[1 : maPeriod+1]
	closes := window.Closes()
	vols := window.Volumes()

	in.todayVolume = ptr(bars[0].Volume.InexactFloat64())
	in.avgVolume = ptr(stat.Mean(vols, nil))
	in.ma20 = ptr(stat.Mean(closes, nil))

	prev := bars[1]
	pc := prev.Close.InexactFloat64()
	in.prevClose = ptr(pc)
	if pc > 0 {
		in.rangeRatio = ptr(prev.Range().InexactFloat64() / pc)
	}
	return in
}

// Score returns a value in [0,1] rounded to four places. A failed price
// read scores zero; each missing input contributes a neutral 0.5.
func (s *Service) Score(ctx context.Context, symbol string) float64 {
	price, err := s.data.CurrentPrice(ctx, symbol)
	if err != nil || !price.IsPositive() {
		return 0
	}
	return combine(price.InexactFloat64(), s.history(ctx, symbol))
}

func combine(current float64, in inputs) float64 {
	total := VolumeScore(in.todayVolume, in.avgVolume)*WeightVolume +
		DailyChangeScore(current, in.prevClose)*WeightDailyChange +
		MADistanceScore(current, in.ma20)*WeightMADistance +
		VolatilityScore(in.rangeRatio)*WeightVolatility
	return math.Round(total*10000) / 10000
}

// VolumeScore is today/avg20 halved, capped at 1.
func VolumeScore(today, avg *float64) float64 {
	if today == nil || avg == nil || *avg <= 0 {
		return neutral
	}
	return math.Min(1, (*today / *avg)/2)
}

// DailyChangeScore favours a gain between 0 and 5 percent.
func DailyChangeScore(current float64, prevClose *float64) float64 {
	if prevClose == nil || *prevClose <= 0 {
		return neutral
	}
	chg := (current - *prevClose) / *prevClose
	var sc float64
	switch {
	case chg >= 0 && chg <= 0.05:
		sc = 0.5 + chg*10
	case chg > 0.05:
		sc = 1
	default:
		sc = math.Max(0, 0.5+chg*5)
	}
	return clamp01(sc)
}

// MADistanceScore favours trading just above the 20-day average.
func MADistanceScore(current float64, ma *float64) float64 {
	if ma == nil || *ma <= 0 || current <= *ma {
		return neutral
	}
	dist := (current - *ma) / *ma
	var sc float64
	switch {
	case dist <= 0.03:
		sc = 0.7 + dist*10
	case dist <= 0.05:
		sc = 1
	default:
		sc = math.Max(0.5, 1-(dist-0.05)*5)
	}
	return clamp01(sc)
}

// VolatilityScore favours a prior-day range of 2 to 5 percent of close.
func VolatilityScore(ratio *float64) float64 {
	if ratio == nil {
		return neutral
	}
	r := *ratio
	var sc float64
	switch {
	case r >= 0.02 && r <= 0.05:
		sc = 1
	case r < 0.02:
		sc = 0.5 + r*25
	default:
		sc = math.Max(0.3, 1-(r-0.05)*5)
	}
	return clamp01(sc)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

type Scored struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

// Rank scores symbols and keeps the best topN, highest first. Ties keep
// input order. topN <= 0 returns nothing.
func (s *Service) Rank(ctx context.Context, symbols []string, topN int) []Scored {
	if topN <= 0 || len(symbols) == 0 {
		return nil
	}
	scored := make([]Scored, 0, len(symbols))
	for _, sym := range symbols {
		scored = append(scored, Scored{Symbol: sym, Score: s.Score(ctx, sym)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topN {
		scored = scored[:topN]
	}
	s.log.WithField("ranked", scored).Debug("Candidates ranked")
	return scored
}

// Symbols extracts the symbol column.
func Symbols(scored []Scored) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Symbol
	}
	return out
}
