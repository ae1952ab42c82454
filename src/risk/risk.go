package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ----- session labels -----

type Session string

const (
	SessionClosedDay   Session = "closed_day"
	SessionBeforeEntry Session = "before_entry"
	SessionEntry       Session = "entry_window"
	SessionAfterEntry  Session = "after_entry"

	MinBudgetRatio = 0.01
	MaxBudgetRatio = 1.0
)

// Entry block reasons, recorded as the decision reason.
const (
	ReasonClosedDay      = "market closed today"
	ReasonOutsideWindow  = "outside entry window"
	ReasonDailyLossLimit = "daily loss limit reached"
	ReasonMaxDailyTrades = "max daily trades reached"
)

// Stats are the per-tick figures the entry filters look at.
type Stats struct {
	TotalAssets       decimal.Decimal
	DailyRealizedPL   decimal.Decimal
	ConsecutiveLosses int
	DailyFills        int
}

// Decision is the outcome of CheckEntry. Reason is empty when allowed.
type Decision struct {
	Allowed bool
	Reason  string
	Session Session
}

type clock struct{ hour, minute int }

func (c clock) minutes() int { return c.hour*60 + c.minute }

func parseClock(s string) (clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return clock{}, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return clock{hour: t.Hour(), minute: t.Minute()}, nil
}

// Gate applies the entry filters. Exits are never gated.
type Gate struct {
	loc          *time.Location
	start, end   clock
	dailyLossPct decimal.Decimal
	lossLimit    int
	maxTrades    int
	holidays     map[string]bool
}

func NewGate(cfg Config) (*Gate, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	start, err := parseClock(cfg.EntryStart)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(cfg.EntryEnd)
	if err != nil {
		return nil, err
	}
	if end.minutes() <= start.minutes() {
		return nil, fmt.Errorf("entry window end %s must be after start %s", cfg.EntryEnd, cfg.EntryStart)
	}

	holidays := map[string]bool{}
	for _, h := range cfg.Holidays {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		holidays[h] = true
	}

	return &Gate{
		loc:          loc,
		start:        start,
		end:          end,
		dailyLossPct: decimal.NewFromFloat(cfg.DailyLossLimitPct),
		lossLimit:    cfg.ConsecutiveLossLimit,
		maxTrades:    cfg.MaxDailyTrades,
		holidays:     holidays,
	}, nil
}

// Location is the market time zone.
func (g *Gate) Location() *time.Location { return g.loc }

// StartOfDay returns local midnight of the market day containing t.
func (g *Gate) StartOfDay(t time.Time) time.Time {
	local := t.In(g.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc)
}

// IsTradingDay is false on weekends, fixed KRX closures and configured holidays.
func (g *Gate) IsTradingDay(t time.Time) bool {
	local := t.In(g.loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	if isFixedClosure(local) {
		return false
	}
	return !g.holidays[local.Format("2006-01-02")]
}

// Session labels t relative to the entry window.
func (g *Gate) Session(t time.Time) Session {
	if !g.IsTradingDay(t) {
		return SessionClosedDay
	}
	local := t.In(g.loc)
	m := local.Hour()*60 + local.Minute()
	switch {
	case m < g.start.minutes():
		return SessionBeforeEntry
	case m >= g.end.minutes():
		return SessionAfterEntry
	default:
		return SessionEntry
	}
}

// CheckEntry runs the filters in order: trading day, entry window, daily
// loss cap, max daily fills. The first failing filter decides.
func (g *Gate) CheckEntry(now time.Time, stats Stats) Decision {
	sess := g.Session(now)
	switch sess {
	case SessionClosedDay:
		return Decision{Allowed: false, Reason: ReasonClosedDay, Session: sess}
	case SessionBeforeEntry, SessionAfterEntry:
		return Decision{Allowed: false, Reason: ReasonOutsideWindow, Session: sess}
	}

	if g.DailyLossBreached(stats) {
		return Decision{Allowed: false, Reason: ReasonDailyLossLimit, Session: sess}
	}

	if g.maxTrades > 0 && stats.DailyFills >= g.maxTrades {
		return Decision{Allowed: false, Reason: ReasonMaxDailyTrades, Session: sess}
	}

	return Decision{Allowed: true, Session: sess}
}

// DailyLossBreached reports whether today's realized loss reached the
// configured percentage of total assets. A zero percentage disables it.
func (g *Gate) DailyLossBreached(stats Stats) bool {
	if !g.dailyLossPct.IsPositive() || !stats.TotalAssets.IsPositive() {
		return false
	}
	if !stats.DailyRealizedPL.IsNegative() {
		return false
	}
	limit := stats.TotalAssets.Mul(g.dailyLossPct).Div(decimal.NewFromInt(100))
	return stats.DailyRealizedPL.Neg().GreaterThanOrEqual(limit)
}

// EffectiveBudgetRatio halves the clamped ratio while the losing streak is
// at or above the configured limit.
func (g *Gate) EffectiveBudgetRatio(base float64, stats Stats) float64 {
	r := ClampRatio(base)
	if g.lossLimit > 0 && stats.ConsecutiveLosses >= g.lossLimit {
		r = ClampRatio(r / 2)
	}
	return r
}

// ClampRatio clamps a budget ratio into [0.01, 1.0].
func ClampRatio(r float64) float64 {
	if r < MinBudgetRatio {
		return MinBudgetRatio
	}
	if r > MaxBudgetRatio {
		return MaxBudgetRatio
	}
	return r
}

// BudgetPerSymbol splits cash * ratio evenly across n symbols.
func BudgetPerSymbol(cash decimal.Decimal, ratio float64, n int) decimal.Decimal {
	if n <= 0 || !cash.IsPositive() {
		return decimal.Zero
	}
	return cash.Mul(decimal.NewFromFloat(ratio)).Div(decimal.NewFromInt(int64(n)))
}

// Quantity is floor(budget / price). Non-positive prices give zero.
func Quantity(budget, price decimal.Decimal) int64 {
	if !price.IsPositive() || !budget.IsPositive() {
		return 0
	}
	return budget.Div(price).Floor().IntPart()
}

// isFixedClosure covers the KRX closures that fall on the same date every
// year. Lunar holidays come from MARKET_HOLIDAYS.
func isFixedClosure(t time.Time) bool {
	switch {
	case t.Month() == time.January && t.Day() == 1,
		t.Month() == time.March && t.Day() == 1,
		t.Month() == time.May && t.Day() == 5,
		t.Month() == time.June && t.Day() == 6,
		t.Month() == time.August && t.Day() == 15,
		t.Month() == time.October && t.Day() == 3,
		t.Month() == time.October && t.Day() == 9,
		t.Month() == time.December && t.Day() == 25,
		t.Month() == time.December && t.Day() == 31:
		return true
	default:
		return false
	}
}
