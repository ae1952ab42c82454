package mapper

import (
	"testing"

	"autotrader/src/externalmodel"

	"github.com/shopspring/decimal"
)

func TestMapDailyRows(t *testing.T) {
	rows := []externalmodel.KISDailyRow{
		{StckBsopDate: "20240305", StckOprc: "102", StckHgpr: "109", StckLwpr: "101", StckClpr: "105", AcmlVol: "120000"},
		{StckBsopDate: "20240304", StckOprc: "100", StckHgpr: "110", StckLwpr: "100", StckClpr: "104", AcmlVol: "90000"},
		{StckBsopDate: "20240303", StckClpr: ""},
	}

	candles := MapDailyRows("005930", rows)
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if !candles[0].Open.Equal(decimal.NewFromInt(102)) || !candles[1].Range().Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected candles: %+v", candles)
	}
	if candles[0].Date.Day() != 5 || candles[0].Symbol != "005930" {
		t.Fatalf("unexpected date or symbol: %+v", candles[0])
	}
}

func TestCashFromSummaryFallbacks(t *testing.T) {
	cases := []struct {
		name string
		in   externalmodel.KISBalanceSummary
		want int64
	}{
		{"deposit", externalmodel.KISBalanceSummary{DncaTotAmt: "500000", TotEvluAmt: "900000"}, 500000},
		{"evaluation", externalmodel.KISBalanceSummary{DncaTotAmt: "0", TotEvluAmt: "900000"}, 900000},
		{"settlement", externalmodel.KISBalanceSummary{PrvsRcdlExccAmt: "300"}, 300},
		{"empty", externalmodel.KISBalanceSummary{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CashFromSummary(tc.in)
			if !got.Equal(decimal.NewFromInt(tc.want)) {
				t.Fatalf("expected %d, got %s", tc.want, got)
			}
		})
	}
}

func TestMapHoldingsAndCandidates(t *testing.T) {
	holdings := MapHoldings([]externalmodel.KISHoldingRow{
		{Pdno: "005930", HldgQty: "8", PchsAvgPr: "71000.5000"},
		{Pdno: "", HldgQty: "3"},
		{Pdno: "000660", HldgQty: "2.000"},
	})
	if len(holdings) != 2 || holdings[0].Quantity != 8 || holdings[1].Quantity != 2 {
		t.Fatalf("unexpected holdings: %+v", holdings)
	}

	cond := MapConditionRows([]externalmodel.KISConditionRow{
		{Code: "005930", Name: "Samsung"},
		{MkscShrnIscd: "000660", HtsKorIsnm: "SK hynix"},
		{},
	})
	if len(cond) != 2 || cond[1].Symbol != "000660" || cond[1].Name != "SK hynix" {
		t.Fatalf("unexpected condition candidates: %+v", cond)
	}

	vol := MapVolumeRankRows([]externalmodel.KISVolumeRankRow{
		{MkscShrnIscd: "035720", StckPrpr: "45000"},
	})
	if len(vol) != 1 || !vol[0].Price.Equal(decimal.NewFromInt(45000)) {
		t.Fatalf("unexpected volume candidates: %+v", vol)
	}
}

func TestDecimalSafeMalformed(t *testing.T) {
	if got := DecimalSafe("x", "abc"); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
	if got := IntSafe("x", " 12 "); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}
