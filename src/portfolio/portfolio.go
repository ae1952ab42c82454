// Package portfolio values the ledger against live prices, records
// periodic snapshots, and serves the status and history read models.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"autotrader/src/metrics"
	"autotrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	MinHistoryDays     = 1
	MaxHistoryDays     = 90
	DefaultHistoryDays = 7
)

var ErrInvalidDays = fmt.Errorf("days must be between %d and %d", MinHistoryDays, MaxHistoryDays)

var hundred = decimal.NewFromInt(100)

type Account interface {
	CashBalance(ctx context.Context) (decimal.Decimal, error)
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type RealizedSource interface {
	RealizedPLSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
}

type SnapshotStore interface {
	Create(ctx context.Context, snap *model.PortfolioSnapshot) error
	Latest(ctx context.Context) (*model.PortfolioSnapshot, error)
	LastBefore(ctx context.Context, t time.Time) (*model.PortfolioSnapshot, error)
	Since(ctx context.Context, t time.Time) ([]model.PortfolioSnapshot, error)
}

// PositionSource yields a point-in-time copy of the ledger.
type PositionSource interface {
	Snapshot() map[string]model.Position
}

// Controls exposes the orchestrator state shown in status payloads.
type Controls interface {
	TradingEnabled() bool
	Universe() []string
}

// DayClock maps an instant to the start of its trading day.
type DayClock interface {
	StartOfDay(t time.Time) time.Time
}

type Deps struct {
	Account   Account
	Trades    RealizedSource
	Snapshots SnapshotStore
	Positions PositionSource
	Controls  Controls
	Clock     DayClock
}

type Service struct {
	deps Deps
	now  func() time.Time
	log  *logger.Entry
}

func NewService(deps Deps, log *logger.Entry) *Service {
	if log == nil {
		log = logger.WithField("component", "portfolio")
	}
	return &Service{deps: deps, now: time.Now, log: log}
}

type PositionDetail struct {
	Symbol          string          `json:"symbol"`
	Quantity        int64           `json:"quantity"`
	EntryPrice      decimal.Decimal `json:"purchase_price"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	UnrealizedPL    decimal.Decimal `json:"unrealized_pl"`
	UnrealizedPLPct decimal.Decimal `json:"unrealized_pl_pct"`
	StopPrice       decimal.Decimal `json:"stop_price"`
	PriceStale      bool            `json:"price_stale,omitempty"`
}

// Status is the dashboard read model. AssetsError is set when the cash
// balance could not be read; the figures are then partial.
type Status struct {
	TotalAssets     decimal.Decimal           `json:"total_assets"`
	CashBalance     decimal.Decimal           `json:"cash_balance"`
	HoldingsValue   decimal.Decimal           `json:"holdings_value"`
	TodayRealizedPL decimal.Decimal           `json:"today_realized_pl"`
	ReturnRate      decimal.Decimal           `json:"return_rate"`
	Positions       map[string]model.Position `json:"positions"`
	PositionsDetail []PositionDetail          `json:"positions_detail"`
	TradingEnabled  bool                      `json:"trading_enabled"`
	TargetSymbols   []string                  `json:"target_symbols"`
	AssetsError     *string                   `json:"assets_error"`
}

type Performance struct {
	TotalAssets    decimal.Decimal `json:"total_assets"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	HoldingsValue  decimal.Decimal `json:"holdings_value"`
	RealizedPL     decimal.Decimal `json:"realized_pnl"`
	UnrealizedPL   decimal.Decimal `json:"unrealized_pnl"`
	DailyReturnPct decimal.Decimal `json:"daily_return_pct"`
}

func (s *Service) startOfDay(t time.Time) time.Time {
	if s.deps.Clock != nil {
		return s.deps.Clock.StartOfDay(t)
	}
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// PositionDetails marks every held position to market, sorted by symbol.
// A failed price read values the position at its entry price.
func (s *Service) PositionDetails(ctx context.Context, positions map[string]model.Position) []PositionDetail {
	out := make([]PositionDetail, 0, len(positions))
	for sym, p := range positions {
		if !p.Held {
			continue
		}
		d := PositionDetail{
			Symbol:     sym,
			Quantity:   p.Quantity,
			EntryPrice: p.EntryPrice,
			StopPrice:  p.StopPrice,
		}
		price, err := s.deps.Account.CurrentPrice(ctx, sym)
		if err != nil || !price.IsPositive() {
			s.log.WithField("symbol", sym).WithError(err).Warn("Price unavailable, valuing position at entry")
			d.CurrentPrice = p.EntryPrice
			d.UnrealizedPL = decimal.Zero
			d.UnrealizedPLPct = decimal.Zero
			d.PriceStale = true
			out = append(out, d)
			continue
		}
		d.CurrentPrice = price
		d.UnrealizedPL = p.UnrealizedPL(price).Round(2)
		if p.EntryPrice.IsPositive() {
			d.UnrealizedPLPct = price.Sub(p.EntryPrice).Div(p.EntryPrice).Mul(hundred).Round(2)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func holdingsValue(details []PositionDetail) (value, unrealized decimal.Decimal) {
	for _, d := range details {
		value = value.Add(d.CurrentPrice.Mul(decimal.NewFromInt(d.Quantity)))
		unrealized = unrealized.Add(d.UnrealizedPL)
	}
	return value, unrealized
}

// Status never fails; downstream errors degrade to zeroed figures.
func (s *Service) Status(ctx context.Context) Status {
	positions := s.deps.Positions.Snapshot()
	st := Status{
		Positions:     positions,
		TargetSymbols: []string{},
	}
	if s.deps.Controls != nil {
		st.TradingEnabled = s.deps.Controls.TradingEnabled()
		st.TargetSymbols = s.deps.Controls.Universe()
	}

	cash, err := s.deps.Account.CashBalance(ctx)
	if err != nil {
		s.log.WithError(err).Error("Cash balance unavailable for status")
		msg := err.Error()
		st.AssetsError = &msg
		cash = decimal.Zero
	}
	st.CashBalance = cash

	st.PositionsDetail = s.PositionDetails(ctx, positions)
	st.HoldingsValue, _ = holdingsValue(st.PositionsDetail)
	st.TotalAssets = cash.Add(st.HoldingsValue)

	if s.deps.Trades != nil {
		pl, err := s.deps.Trades.RealizedPLSince(ctx, s.startOfDay(s.now()))
		if err != nil {
			s.log.WithError(err).Debug("Realized P/L unavailable for status")
		} else {
			st.TodayRealizedPL = pl
		}
	}
	if st.TotalAssets.IsPositive() {
		st.ReturnRate = st.TodayRealizedPL.Div(st.TotalAssets).Mul(hundred).Round(2)
	}

	if st.AssetsError == nil {
		metrics.TotalAssets.Set(st.TotalAssets.InexactFloat64())
	}
	return st
}

// TakeSnapshot records the current account valuation. The daily return
// compares against the last snapshot taken before today started.
func (s *Service) TakeSnapshot(ctx context.Context) (*model.PortfolioSnapshot, error) {
	cash, err := s.deps.Account.CashBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cash balance: %w", err)
	}

	details := s.PositionDetails(ctx, s.deps.Positions.Snapshot())
	value, unrealized := holdingsValue(details)
	total := cash.Add(value)

	now := s.now()
	dayStart := s.startOfDay(now)

	realized := decimal.Zero
	if s.deps.Trades != nil {
		if pl, err := s.deps.Trades.RealizedPLSince(ctx, dayStart); err != nil {
			s.log.WithError(err).Warn("Realized P/L unavailable, snapshot records zero")
		} else {
			realized = pl
		}
	}

	dailyReturn := decimal.Zero
	prev, err := s.deps.Snapshots.LastBefore(ctx, dayStart)
	if err != nil {
		s.log.WithError(err).Warn("Previous snapshot unavailable, daily return set to zero")
	} else if prev != nil && prev.TotalAssets.IsPositive() {
		dailyReturn = total.Sub(prev.TotalAssets).Div(prev.TotalAssets).Mul(hundred).Round(4)
	}

	snap := &model.PortfolioSnapshot{
		Timestamp:      now.UTC(),
		TotalAssets:    total,
		CashBalance:    cash,
		HoldingsValue:  value,
		RealizedPL:     realized,
		UnrealizedPL:   unrealized,
		DailyReturnPct: dailyReturn,
	}
	if err := s.deps.Snapshots.Create(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	metrics.TotalAssets.Set(total.InexactFloat64())

	s.log.WithFields(map[string]interface{}{
		"total_assets":   total.StringFixed(0),
		"cash":           cash.StringFixed(0),
		"holdings_value": value.StringFixed(0),
	}).Info("Portfolio snapshot saved")
	return snap, nil
}

// History returns the snapshots of the last days days, oldest first.
func (s *Service) History(ctx context.Context, days int) ([]model.PortfolioSnapshot, error) {
	if days < MinHistoryDays || days > MaxHistoryDays {
		return nil, ErrInvalidDays
	}
	rows, err := s.deps.Snapshots.Since(ctx, s.now().Add(-time.Duration(days)*24*time.Hour))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.PortfolioSnapshot{}
	}
	return rows, nil
}

// Performance reports the latest snapshot, or zeros when none exists.
func (s *Service) Performance(ctx context.Context) (Performance, error) {
	snap, err := s.deps.Snapshots.Latest(ctx)
	if err != nil {
		return Performance{}, err
	}
	if snap == nil {
		return Performance{}, nil
	}
	return Performance{
		TotalAssets:    snap.TotalAssets,
		CashBalance:    snap.CashBalance,
		HoldingsValue:  snap.HoldingsValue,
		RealizedPL:     snap.RealizedPL,
		UnrealizedPL:   snap.UnrealizedPL,
		DailyReturnPct: snap.DailyReturnPct,
	}, nil
}

// IsInvalidDays reports whether err is a rejected history range.
func IsInvalidDays(err error) bool {
	return errors.Is(err, ErrInvalidDays)
}
