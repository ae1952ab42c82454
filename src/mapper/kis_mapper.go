package mapper

import (
	"strconv"
	"strings"
	"time"

	"autotrader/src/externalmodel"
	"autotrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

var kst = time.FixedZone("KST", 9*60*60)

// DecimalSafe parses a KIS numeric string. Empty or malformed values are
// logged and mapped to zero instead of failing the whole response.
func DecimalSafe(field, v string) decimal.Decimal {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"field": field,
			"value": v,
		}).WithError(err).Warn("Failed to parse decimal from KIS field; defaulting to 0")
		return decimal.Zero
	}
	return d
}

// IntSafe parses a KIS integer string, defaulting to zero.
func IntSafe(field, v string) int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// quantities sometimes come back as "10.000"
		d := DecimalSafe(field, v)
		return d.IntPart()
	}
	return n
}

// MapDailyRows converts inquire-daily-price rows, keeping the broker's
// newest-first order. Rows without a close are dropped.
func MapDailyRows(symbol string, rows []externalmodel.KISDailyRow) model.Candles {
	out := make(model.Candles, 0, len(rows))
	for _, r := range rows {
		closePrice := DecimalSafe("stck_clpr", r.StckClpr)
		if closePrice.IsZero() {
			continue
		}
		date, err := time.ParseInLocation("20060102", r.StckBsopDate, kst)
		if err != nil {
			date = time.Time{}
		}
		out = append(out, model.Candle{
			Date:   date,
			Open:   DecimalSafe("stck_oprc", r.StckOprc),
			High:   DecimalSafe("stck_hgpr", r.StckHgpr),
			Low:    DecimalSafe("stck_lwpr", r.StckLwpr),
			Close:  closePrice,
			Volume: DecimalSafe("acml_vol", r.AcmlVol),
			Symbol: symbol,
		})
	}
	return out
}

// MapHoldings converts inquire-balance output1 rows.
func MapHoldings(rows []externalmodel.KISHoldingRow) []model.Holding {
	out := make([]model.Holding, 0, len(rows))
	for _, r := range rows {
		if r.Pdno == "" {
			continue
		}
		out = append(out, model.Holding{
			Symbol:       r.Pdno,
			Name:         r.PrdtName,
			Quantity:     IntSafe("hldg_qty", r.HldgQty),
			AveragePrice: DecimalSafe("pchs_avg_pric", r.PchsAvgPr),
			CurrentPrice: DecimalSafe("prpr", r.Prpr),
		})
	}
	return out
}

// CashFromSummary picks the deposit total, falling back to total evaluation
// and then the settlement amount when earlier fields are zero.
func CashFromSummary(s externalmodel.KISBalanceSummary) decimal.Decimal {
	for _, f := range []struct{ name, value string }{
		{"dnca_tot_amt", s.DncaTotAmt},
		{"tot_evlu_amt", s.TotEvluAmt},
		{"prvs_rcdl_excc_amt", s.PrvsRcdlExccAmt},
	} {
		if v := DecimalSafe(f.name, f.value); v.IsPositive() {
			return v
		}
	}
	return decimal.Zero
}

// MapConditionRows converts saved-screening rows into candidates.
func MapConditionRows(rows []externalmodel.KISConditionRow) []model.Candidate {
	out := make([]model.Candidate, 0, len(rows))
	for _, r := range rows {
		code := r.Code
		if code == "" {
			code = r.MkscShrnIscd
		}
		if code == "" {
			continue
		}
		name := r.Name
		if name == "" {
			name = r.HtsKorIsnm
		}
		out = append(out, model.Candidate{
			Symbol: code,
			Name:   name,
			Price:  DecimalSafe("price", r.Price),
			Volume: DecimalSafe("acml_vol", r.Vol),
		})
	}
	return out
}

// MapVolumeRankRows converts volume-rank rows into candidates.
func MapVolumeRankRows(rows []externalmodel.KISVolumeRankRow) []model.Candidate {
	out := make([]model.Candidate, 0, len(rows))
	for _, r := range rows {
		if r.MkscShrnIscd == "" {
			continue
		}
		out = append(out, model.Candidate{
			Symbol: r.MkscShrnIscd,
			Name:   r.HtsKorIsnm,
			Price:  DecimalSafe("stck_prpr", r.StckPrpr),
			Volume: DecimalSafe("acml_vol", r.AcmlVol),
		})
	}
	return out
}
