package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"autotrader/src/ledger"
	"autotrader/src/metrics"
	"autotrader/src/model"
	"autotrader/src/risk"
	"autotrader/src/strategy"
	"autotrader/src/tp_sl"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	serviceName = "trader"
	moduleName  = "controller"

	ReasonRiskStatsUnavailable = "risk statistics unavailable"
)

// Account is the broker read side the orchestrator needs.
type Account interface {
	CashBalance(ctx context.Context) (decimal.Decimal, error)
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// StrategySource resolves the strategy assigned to a symbol.
type StrategySource interface {
	For(ctx context.Context, symbol string) (strategy.Strategy, error)
}

// OrderExecutor places orders and records each attempt.
type OrderExecutor interface {
	Buy(ctx context.Context, symbol string, quantity int64, price decimal.Decimal) (model.TradeRecord, error)
	Sell(ctx context.Context, symbol string, quantity int64, price, realizedPL decimal.Decimal, reason string) (model.TradeRecord, error)
}

// DecisionStore appends decision records.
type DecisionStore interface {
	Create(ctx context.Context, rec *model.DecisionRecord) error
}

// TradeHistory answers the risk questions asked once per tick.
type TradeHistory interface {
	RealizedPLSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
	ConsecutiveLosses(ctx context.Context, lookback int) (int, error)
	ExecutedCountSince(ctx context.Context, since time.Time) (int64, error)
}

// EventSink receives trade events for the broadcaster.
type EventSink interface {
	Push(msg any)
}

// Notifier delivers short operator messages. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Deps are the collaborators of a TradingController. Events, Notifier and
// Exceptions may be nil.
type Deps struct {
	Account    Account
	Strategies StrategySource
	Orders     OrderExecutor
	Ledger     *ledger.Ledger
	Risk       *risk.Gate
	Decisions  DecisionStore
	History    TradeHistory
	Events     EventSink
	Notifier   Notifier
	Exceptions ExceptionStore
}

// TradingController runs the per-tick decision loop and end-of-day
// liquidation. It is the only writer of the ledger.
type TradingController struct {
	deps    Deps
	cfg     Config
	enabled atomic.Bool
	now     func() time.Time
	log     *logger.Entry

	// run serializes Tick and LiquidateAll.
	run sync.Mutex

	mu       sync.RWMutex
	universe []string
}

func NewTradingController(deps Deps, cfg Config, log *logger.Entry) *TradingController {
	if log == nil {
		log = logger.WithField("component", "trading_controller")
	}
	c := &TradingController{
		deps: deps,
		cfg:  cfg,
		now:  time.Now,
		log:  log,
	}
	c.enabled.Store(cfg.TradingEnabled)
	c.universe = NormalizeSymbols(cfg.TargetSymbols)
	return c
}

func (c *TradingController) TradingEnabled() bool { return c.enabled.Load() }

// SetTradingEnabled toggles ticks. An in-flight tick is not interrupted.
func (c *TradingController) SetTradingEnabled(on bool) {
	c.enabled.Store(on)
	c.log.WithField("enabled", on).Info("Trading toggled")
}

// Universe returns a copy of the symbols eligible for entries.
func (c *TradingController) Universe() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.universe...)
}

// SetUniverse replaces the entry universe and makes sure the ledger tracks
// every symbol in it. Held symbols that drop out keep exit management.
func (c *TradingController) SetUniverse(symbols []string) {
	next := NormalizeSymbols(symbols)
	c.mu.Lock()
	c.universe = next
	c.mu.Unlock()

	if err := c.deps.Ledger.Ensure(next...); err != nil {
		c.log.WithError(err).Warn("Failed to persist ledger after universe change")
	}
	c.log.WithField("symbols", next).Info("Universe updated")
}

// Positions is a point-in-time copy of the ledger.
func (c *TradingController) Positions() map[string]model.Position {
	return c.deps.Ledger.Snapshot()
}

type tickState struct {
	now      time.Time
	cash     decimal.Decimal
	symbols  int
	stats    risk.Stats
	statsErr error
}

// budget is re-derived on every entry so exits earlier in the tick can
// shrink it.
func (st *tickState) budget(r *risk.Gate, base float64) decimal.Decimal {
	return risk.BudgetPerSymbol(st.cash, r.EffectiveBudgetRatio(base, st.stats), st.symbols)
}

// Tick runs one evaluation pass over the universe and any held symbols.
// Failing to read cash aborts the tick; per-symbol failures do not.
func (c *TradingController) Tick(ctx context.Context) error {
	if !c.TradingEnabled() {
		metrics.Ticks.WithLabelValues("disabled").Inc()
		c.log.Debug("Trading disabled, skipping tick")
		return nil
	}

	c.run.Lock()
	defer c.run.Unlock()

	universe := c.Universe()
	cash, err := c.deps.Account.CashBalance(ctx)
	if err != nil {
		metrics.Ticks.WithLabelValues("no_cash").Inc()
		c.log.WithError(err).Error("Cash balance unavailable, skipping tick")
		Capture(ctx, c.deps.Exceptions, serviceName, moduleName, "Tick", "error", err, map[string]interface{}{})
		return fmt.Errorf("read cash balance: %w", err)
	}

	st := &tickState{now: c.now(), cash: cash, symbols: len(universe)}
	st.stats, st.statsErr = c.riskStats(ctx, st.now, cash)
	if st.statsErr != nil {
		c.log.WithError(st.statsErr).Warn("Risk statistics unavailable, entries blocked this tick")
	}
	ratio := c.deps.Risk.EffectiveBudgetRatio(c.cfg.BudgetRatio, st.stats)

	c.log.WithFields(map[string]interface{}{
		"cash":               cash.String(),
		"ratio":              ratio,
		"budget_per_symbol":  st.budget(c.deps.Risk, c.cfg.BudgetRatio).StringFixed(0),
		"symbols":            len(universe),
		"daily_realized_pl":  st.stats.DailyRealizedPL.String(),
		"consecutive_losses": st.stats.ConsecutiveLosses,
		"daily_fills":        st.stats.DailyFills,
	}).Info("Tick started")

	inUniverse := make(map[string]bool, len(universe))
	for _, s := range universe {
		inUniverse[s] = true
	}
	symbols := append([]string(nil), universe...)
	for _, s := range c.deps.Ledger.HeldSymbols() {
		if !inUniverse[s] {
			symbols = append(symbols, s)
		}
	}

	for _, symbol := range symbols {
		c.processSymbol(ctx, symbol, inUniverse[symbol], st)
	}

	metrics.Ticks.WithLabelValues("ok").Inc()
	return nil
}

func (c *TradingController) riskStats(ctx context.Context, now time.Time, cash decimal.Decimal) (risk.Stats, error) {
	stats := risk.Stats{TotalAssets: cash}
	for _, p := range c.deps.Ledger.Snapshot() {
		stats.TotalAssets = stats.TotalAssets.Add(p.CostBasis())
	}
	if c.deps.History == nil {
		return stats, nil
	}

	since := c.deps.Risk.StartOfDay(now)
	var errs []error

	pl, err := c.deps.History.RealizedPLSince(ctx, since)
	if err != nil {
		errs = append(errs, fmt.Errorf("realized p/l: %w", err))
	}
	stats.DailyRealizedPL = pl

	lookback := c.cfg.LossStreakLookback
	if lookback <= 0 {
		lookback = 50
	}
	losses, err := c.deps.History.ConsecutiveLosses(ctx, lookback)
	if err != nil {
		errs = append(errs, fmt.Errorf("losing streak: %w", err))
	}
	stats.ConsecutiveLosses = losses

	fills, err := c.deps.History.ExecutedCountSince(ctx, since)
	if err != nil {
		errs = append(errs, fmt.Errorf("daily fills: %w", err))
	}
	stats.DailyFills = int(fills)

	return stats, errors.Join(errs...)
}

func (c *TradingController) processSymbol(ctx context.Context, symbol string, canEnter bool, st *tickState) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing %s: %v", symbol, r)
			Capture(ctx, c.deps.Exceptions, serviceName, moduleName, "processSymbol", "error", err, map[string]interface{}{"symbol": symbol})
		}
	}()

	strat, err := c.deps.Strategies.For(ctx, symbol)
	if err != nil {
		c.log.WithField("symbol", symbol).WithError(err).Error("No strategy available")
		return
	}

	pos, _ := c.deps.Ledger.Get(symbol)
	if pos.Held {
		c.manageHeld(ctx, symbol, pos, strat, st)
		return
	}
	if canEnter {
		c.considerEntry(ctx, symbol, strat, st)
	}
}

// manageHeld exits on a strategy SELL, then on a stop hit, and otherwise
// ratchets the stop. The stop check uses its own price read; it runs even
// when the strategy could not be evaluated.
func (c *TradingController) manageHeld(ctx context.Context, symbol string, pos model.Position, strat strategy.Strategy, st *tickState) {
	log := c.log.WithFields(map[string]interface{}{"symbol": symbol, "strategy": strat.Name()})

	ev, evalErr := strat.Evaluate(ctx, symbol)
	if evalErr != nil {
		log.WithError(evalErr).Warn("Strategy evaluation failed, managing stop only")
	} else if ev.Signal == model.SignalSell {
		price := ev.CurrentPrice
		if !price.IsPositive() {
			price = pos.EntryPrice
		}
		err := c.exit(ctx, symbol, pos, price, model.ExitReasonSignal, st)
		c.recordDecision(ctx, symbol, strat.Name(), ev, actionFor(err))
		return
	} else {
		c.recordDecision(ctx, symbol, strat.Name(), ev, model.ActionSkipped)
	}

	price, err := c.deps.Account.CurrentPrice(ctx, symbol)
	if err != nil {
		log.WithError(err).Error("Current price unavailable, stop not checked")
		return
	}

	if tp_sl.StopHit(price, pos.StopPrice) {
		log.WithFields(map[string]interface{}{
			"price": price.String(),
			"stop":  pos.StopPrice.String(),
		}).Info("Trailing stop hit")
		_ = c.exit(ctx, symbol, pos, price, model.ExitReasonStop, st)
		return
	}

	next, raised := tp_sl.NextTrailingStop(pos.StopPrice, price, strat.TrailingStopPct())
	if !raised {
		return
	}
	if _, err := c.deps.Ledger.RaiseStop(symbol, next); err != nil {
		log.WithError(err).Warn("Stop raised in memory but not persisted")
	}
	log.WithFields(map[string]interface{}{
		"from": pos.StopPrice.String(),
		"to":   next.String(),
	}).Info("Stop raised")
}

func (c *TradingController) considerEntry(ctx context.Context, symbol string, strat strategy.Strategy, st *tickState) {
	log := c.log.WithFields(map[string]interface{}{"symbol": symbol, "strategy": strat.Name()})

	ev, err := strat.Evaluate(ctx, symbol)
	if err != nil {
		log.WithError(err).Warn("Strategy evaluation failed")
		return
	}
	if ev.Signal != model.SignalBuy || !ev.Price.IsPositive() {
		c.recordDecision(ctx, symbol, strat.Name(), ev, model.ActionSkipped)
		return
	}

	if st.statsErr != nil {
		ev.Reason = ReasonRiskStatsUnavailable
		c.recordDecision(ctx, symbol, strat.Name(), ev, model.ActionSkipped)
		return
	}
	if verdict := c.deps.Risk.CheckEntry(st.now, st.stats); !verdict.Allowed {
		log.WithField("session", verdict.Session).Info("Entry blocked: " + verdict.Reason)
		ev.Reason = verdict.Reason
		c.recordDecision(ctx, symbol, strat.Name(), ev, model.ActionSkipped)
		return
	}

	budget := st.budget(c.deps.Risk, c.cfg.BudgetRatio)
	qty := risk.Quantity(budget, ev.Price)
	if qty < 1 {
		log.WithFields(map[string]interface{}{
			"budget": budget.StringFixed(0),
			"price":  ev.Price.String(),
		}).Info("Budget below one share, skipping entry")
		ev.Reason = fmt.Sprintf("budget %s below price %s", budget.StringFixed(0), ev.Price.String())
		c.recordDecision(ctx, symbol, strat.Name(), ev, model.ActionSkipped)
		return
	}

	rec, err := c.deps.Orders.Buy(ctx, symbol, qty, ev.Price)
	if err != nil {
		Capture(ctx, c.deps.Exceptions, serviceName, moduleName, "considerEntry", "error", err, map[string]interface{}{
			"symbol":   symbol,
			"quantity": qty,
			"price":    ev.Price.String(),
		})
		c.recordDecision(ctx, symbol, strat.Name(), ev, model.ActionFailed)
		return
	}

	stop := tp_sl.InitialStop(ev.Price, strat.TrailingStopPct())
	if err := c.deps.Ledger.Open(symbol, ev.Price, qty, stop); err != nil {
		log.WithError(err).Warn("Entry recorded in memory but not persisted")
	}
	st.stats.DailyFills++

	log.WithFields(map[string]interface{}{
		"quantity": qty,
		"price":    ev.Price.String(),
		"stop":     stop.String(),
	}).Info("Entry filled")
	c.publish(ctx, rec, fmt.Sprintf("[BUY] %s x%d @ %s | stop %s", symbol, qty, ev.Price.StringFixed(0), stop.StringFixed(0)))
	c.recordDecision(ctx, symbol, strat.Name(), ev, model.ActionExecuted)
}

// exit sells the full position at market and closes the ledger entry on
// success. st is nil outside a tick.
func (c *TradingController) exit(ctx context.Context, symbol string, pos model.Position, price decimal.Decimal, reason string, st *tickState) error {
	pl := price.Sub(pos.EntryPrice).Mul(decimal.NewFromInt(pos.Quantity))

	rec, err := c.deps.Orders.Sell(ctx, symbol, pos.Quantity, price, pl, reason)
	if err != nil {
		Capture(ctx, c.deps.Exceptions, serviceName, moduleName, "exit", "error", err, map[string]interface{}{
			"symbol":   symbol,
			"quantity": pos.Quantity,
			"reason":   reason,
		})
		return err
	}

	if err := c.deps.Ledger.Close(symbol); err != nil {
		c.log.WithField("symbol", symbol).WithError(err).Warn("Exit recorded in memory but not persisted")
	}
	metrics.Exits.WithLabelValues(reason).Inc()

	if st != nil {
		st.stats.DailyFills++
		st.stats.DailyRealizedPL = st.stats.DailyRealizedPL.Add(pl)
		if pl.IsNegative() {
			st.stats.ConsecutiveLosses++
		} else {
			st.stats.ConsecutiveLosses = 0
		}
	}

	c.log.WithFields(map[string]interface{}{
		"symbol":      symbol,
		"quantity":    pos.Quantity,
		"price":       price.String(),
		"realized_pl": pl.String(),
		"reason":      reason,
	}).Info("Position closed")
	c.publish(ctx, rec, fmt.Sprintf("[SELL/%s] %s x%d @ %s | P/L %s", reason, symbol, pos.Quantity, price.StringFixed(0), pl.StringFixed(0)))
	return nil
}

func (c *TradingController) publish(ctx context.Context, rec model.TradeRecord, text string) {
	if c.deps.Events != nil {
		c.deps.Events.Push(model.NewTradeEvent(rec))
	}
	if c.deps.Notifier != nil {
		c.deps.Notifier.Notify(ctx, text)
	}
}

func (c *TradingController) recordDecision(ctx context.Context, symbol, strategyName string, ev strategy.Evaluation, action model.DecisionAction) {
	metrics.Decisions.WithLabelValues(strategyName, string(ev.Signal)).Inc()
	if c.deps.Decisions == nil {
		return
	}
	rec := ev.Decision(symbol, strategyName, action, c.now())
	if err := c.deps.Decisions.Create(ctx, &rec); err != nil {
		c.log.WithField("symbol", symbol).WithError(err).Warn("Failed to record decision")
	}
}

func actionFor(err error) model.DecisionAction {
	if err != nil {
		return model.ActionFailed
	}
	return model.ActionExecuted
}
