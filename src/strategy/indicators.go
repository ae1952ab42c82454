package strategy

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// ascending returns closes[from:to] of a newest-first series, oldest first.
func ascending(newestFirst []float64, from, to int) []float64 {
	if to > len(newestFirst) {
		to = len(newestFirst)
	}
	if from >= to {
		return nil
	}
	out := make([]float64, 0, to-from)
	for i := to - 1; i >= from; i-- {
		out = append(out, newestFirst[i])
	}
	return out
}

// SMA is the simple mean of xs; ok is false for an empty slice.
func SMA(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	return stat.Mean(xs, nil), true
}

// RSI returns Wilder's RSI over an oldest-first close series. A series with
// no down moves reads 100. ok is false with fewer than period+1 closes.
func RSI(closes []float64, period int) (float64, bool) {
	if period < 2 || len(closes) < period+1 {
		return 0, false
	}
	hasLoss := false
	for i := 1; i < len(closes); i++ {
		if closes[i] < closes[i-1] {
			hasLoss = true
			break
		}
	}
	if !hasLoss {
		return 100, true
	}
	out := talib.Rsi(closes, period)
	v := out[len(out)-1]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Bands are Bollinger bands around a simple mean.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands uses the population standard deviation of the last period
// closes. A flat window gets a tiny non-zero width so touches still register.
func BollingerBands(closes []float64, period int, mult float64) (Bands, bool) {
	if period < 1 || len(closes) < period {
		return Bands{}, false
	}
	window := closes[len(closes)-period:]
	mean, std := stat.PopMeanStdDev(window, nil)
	if std == 0 {
		std = 1e-10
	}
	return Bands{
		Upper:  mean + mult*std,
		Middle: mean,
		Lower:  mean - mult*std,
	}, true
}
