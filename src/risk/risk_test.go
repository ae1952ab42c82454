package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func seoulDate(year int, month time.Month, day, hour, minute int) time.Time {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func newTestGate(t *testing.T, mutate func(*Config)) *Gate {
	t.Helper()
	cfg := Config{
		EntryStart:           "09:05",
		EntryEnd:             "15:00",
		Timezone:             "Asia/Seoul",
		DailyLossLimitPct:    3.0,
		ConsecutiveLossLimit: 3,
		MaxDailyTrades:       10,
		Holidays:             []string{"2025-01-29"},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := NewGate(cfg)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	return g
}

func healthyStats() Stats {
	return Stats{
		TotalAssets:     decimal.NewFromInt(10_000_000),
		DailyRealizedPL: decimal.Zero,
	}
}

func TestCheckEntry_Filters(t *testing.T) {
	g := newTestGate(t, nil)

	tests := []struct {
		name        string
		at          time.Time
		stats       Stats
		wantAllowed bool
		wantReason  string
		wantSession Session
	}{
		{
			name:        "Tuesday 10.00 inside window",
			at:          seoulDate(2025, time.March, 4, 10, 0),
			stats:       healthyStats(),
			wantAllowed: true,
			wantSession: SessionEntry,
		},
		{
			name:        "Tuesday 09.03 before entry start",
			at:          seoulDate(2025, time.March, 4, 9, 3),
			stats:       healthyStats(),
			wantReason:  ReasonOutsideWindow,
			wantSession: SessionBeforeEntry,
		},
		{
			name:        "Tuesday 15.00 entry end is exclusive",
			at:          seoulDate(2025, time.March, 4, 15, 0),
			stats:       healthyStats(),
			wantReason:  ReasonOutsideWindow,
			wantSession: SessionAfterEntry,
		},
		{
			name:        "Saturday",
			at:          seoulDate(2025, time.March, 8, 10, 0),
			stats:       healthyStats(),
			wantReason:  ReasonClosedDay,
			wantSession: SessionClosedDay,
		},
		{
			name:        "Configured lunar holiday",
			at:          seoulDate(2025, time.January, 29, 10, 0),
			stats:       healthyStats(),
			wantReason:  ReasonClosedDay,
			wantSession: SessionClosedDay,
		},
		{
			name:        "Fixed closure Liberation Day",
			at:          seoulDate(2025, time.August, 15, 10, 0),
			stats:       healthyStats(),
			wantReason:  ReasonClosedDay,
			wantSession: SessionClosedDay,
		},
		{
			name: "Daily loss at exactly 3 percent",
			at:   seoulDate(2025, time.March, 4, 10, 0),
			stats: Stats{
				TotalAssets:     decimal.NewFromInt(10_000_000),
				DailyRealizedPL: decimal.NewFromInt(-300_000),
			},
			wantReason:  ReasonDailyLossLimit,
			wantSession: SessionEntry,
		},
		{
			name: "Daily loss below cap",
			at:   seoulDate(2025, time.March, 4, 10, 0),
			stats: Stats{
				TotalAssets:     decimal.NewFromInt(10_000_000),
				DailyRealizedPL: decimal.NewFromInt(-299_999),
			},
			wantAllowed: true,
			wantSession: SessionEntry,
		},
		{
			name: "Max daily fills",
			at:   seoulDate(2025, time.March, 4, 10, 0),
			stats: Stats{
				TotalAssets: decimal.NewFromInt(10_000_000),
				DailyFills:  10,
			},
			wantReason:  ReasonMaxDailyTrades,
			wantSession: SessionEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.CheckEntry(tt.at, tt.stats)
			if got.Allowed != tt.wantAllowed {
				t.Fatalf("allowed mismatch. got=%v want=%v (reason=%s)", got.Allowed, tt.wantAllowed, got.Reason)
			}
			if got.Reason != tt.wantReason {
				t.Fatalf("reason mismatch. got=%q want=%q", got.Reason, tt.wantReason)
			}
			if got.Session != tt.wantSession {
				t.Fatalf("session mismatch. got=%s want=%s", got.Session, tt.wantSession)
			}
		})
	}
}

func TestCheckEntry_DisabledLimits(t *testing.T) {
	g := newTestGate(t, func(c *Config) {
		c.DailyLossLimitPct = 0
		c.MaxDailyTrades = 0
	})
	got := g.CheckEntry(seoulDate(2025, time.March, 4, 10, 0), Stats{
		TotalAssets:     decimal.NewFromInt(1_000_000),
		DailyRealizedPL: decimal.NewFromInt(-900_000),
		DailyFills:      500,
	})
	if !got.Allowed {
		t.Fatalf("expected entry allowed with limits disabled, got reason=%s", got.Reason)
	}
}

func TestEffectiveBudgetRatio(t *testing.T) {
	g := newTestGate(t, nil)

	if got := g.EffectiveBudgetRatio(0.5, Stats{ConsecutiveLosses: 2}); got != 0.5 {
		t.Fatalf("expected 0.5 below streak limit, got=%v", got)
	}
	if got := g.EffectiveBudgetRatio(0.5, Stats{ConsecutiveLosses: 3}); got != 0.25 {
		t.Fatalf("expected 0.25 at streak limit, got=%v", got)
	}
	if got := g.EffectiveBudgetRatio(5.0, Stats{}); got != 1.0 {
		t.Fatalf("expected clamped 1.0, got=%v", got)
	}
	if got := g.EffectiveBudgetRatio(0.01, Stats{ConsecutiveLosses: 7}); got != 0.01 {
		t.Fatalf("expected floor 0.01, got=%v", got)
	}
}

func TestClampRatio(t *testing.T) {
	cases := map[float64]float64{-1: 0.01, 0: 0.01, 0.3: 0.3, 1: 1, 2: 1}
	for in, want := range cases {
		if got := ClampRatio(in); got != want {
			t.Fatalf("ClampRatio(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestBudgetAndQuantity(t *testing.T) {
	budget := BudgetPerSymbol(decimal.NewFromInt(1_000_000), 0.5, 4)
	if !budget.Equal(decimal.NewFromInt(125_000)) {
		t.Fatalf("expected budget 125000, got=%s", budget)
	}

	qty := Quantity(budget, decimal.NewFromInt(40_000))
	if qty != 3 {
		t.Fatalf("expected quantity 3, got=%d", qty)
	}

	if q := Quantity(budget, decimal.NewFromInt(200_000)); q != 0 {
		t.Fatalf("expected quantity 0 when price exceeds budget, got=%d", q)
	}
	if q := Quantity(budget, decimal.Zero); q != 0 {
		t.Fatalf("expected quantity 0 for zero price, got=%d", q)
	}
	if b := BudgetPerSymbol(decimal.NewFromInt(1_000_000), 0.5, 0); !b.IsZero() {
		t.Fatalf("expected zero budget for empty universe, got=%s", b)
	}
}

func TestNewGateRejectsBadConfig(t *testing.T) {
	bad := []Config{
		{EntryStart: "9h", EntryEnd: "15:00", Timezone: "Asia/Seoul"},
		{EntryStart: "15:00", EntryEnd: "09:00", Timezone: "Asia/Seoul"},
		{EntryStart: "09:00", EntryEnd: "15:00", Timezone: "Mars/Olympus"},
		{EntryStart: "09:00", EntryEnd: "15:00", Timezone: "Asia/Seoul", Holidays: []string{"2025/01/29"}},
	}
	for i, cfg := range bad {
		if _, err := NewGate(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestStartOfDay(t *testing.T) {
	g := newTestGate(t, nil)
	// 23:30 UTC on March 3 is 08:30 March 4 in Seoul
	at := time.Date(2025, time.March, 3, 23, 30, 0, 0, time.UTC)
	got := g.StartOfDay(at)
	if got.Day() != 4 || got.Hour() != 0 {
		t.Fatalf("unexpected start of day: %s", got)
	}
}
