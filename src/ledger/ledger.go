// Package ledger is the local belief about open positions, one entry per
// tracked symbol.
//
// The orchestrator is the only writer. Every mutation rewrites the whole
// map through the Store before returning; readers get copies from Snapshot.
// When a save fails the in-memory state still holds the mutation and the
// error is returned to the caller.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"autotrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

type Ledger struct {
	// wmu serializes writers across mutation and save; mu guards the map.
	wmu       sync.Mutex
	mu        sync.RWMutex
	positions map[string]model.Position
	store     Store
	log       *logger.Entry
}

// Load restores the ledger from store and makes sure every symbol has an
// entry. A missing or unreadable state file starts every symbol closed.
func Load(store Store, symbols []string, log *logger.Entry) *Ledger {
	if log == nil {
		log = logger.WithField("component", "ledger")
	}
	l := &Ledger{positions: map[string]model.Position{}, store: store, log: log}

	var (
		loaded map[string]model.Position
		err    = ErrNoState
	)
	if store != nil {
		loaded, err = store.Load()
	}
	switch {
	case errors.Is(err, ErrNoState):
		log.Warn("No ledger state found, starting all symbols closed")
	case err != nil:
		log.WithError(err).Warn("Ledger state unreadable, starting all symbols closed")
	default:
		for sym, p := range loaded {
			if verr := p.Validate(); verr != nil {
				log.WithField("symbol", sym).WithError(verr).Warn("Resetting invalid position to closed")
				p = model.ClosedPosition()
			}
			l.positions[sym] = p
		}
		log.WithField("symbols", len(l.positions)).Info("Ledger state loaded")
	}

	for _, sym := range symbols {
		if _, ok := l.positions[sym]; !ok {
			l.positions[sym] = model.ClosedPosition()
		}
	}
	return l
}

// Snapshot returns a point-in-time copy of every entry.
func (l *Ledger) Snapshot() map[string]model.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyPositions(l.positions)
}

// Get returns the entry for symbol; untracked symbols read as closed.
func (l *Ledger) Get(symbol string) (model.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[symbol]
	if !ok {
		return model.ClosedPosition(), false
	}
	return p, true
}

// HeldSymbols lists symbols with an open position, sorted.
func (l *Ledger) HeldSymbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0)
	for sym, p := range l.positions {
		if p.Held {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// Open records a filled entry.
func (l *Ledger) Open(symbol string, entry decimal.Decimal, quantity int64, stop decimal.Decimal) error {
	p := model.OpenPosition(entry, quantity, stop)
	if err := p.Validate(); err != nil {
		return fmt.Errorf("open %s: %w", symbol, err)
	}
	return l.mutate(symbol, func() { l.positions[symbol] = p })
}

// Close flattens symbol.
func (l *Ledger) Close(symbol string) error {
	return l.mutate(symbol, func() { l.positions[symbol] = model.ClosedPosition() })
}

// RaiseStop moves the stop of a held position up to stop. Lower or equal
// values and closed positions are left alone; raised reports a change.
func (l *Ledger) RaiseStop(symbol string, stop decimal.Decimal) (raised bool, err error) {
	l.wmu.Lock()
	defer l.wmu.Unlock()

	l.mu.Lock()
	p, ok := l.positions[symbol]
	if !ok || !p.Held || !stop.GreaterThan(p.StopPrice) {
		l.mu.Unlock()
		return false, nil
	}
	p.StopPrice = stop
	l.positions[symbol] = p
	snapshot := copyPositions(l.positions)
	l.mu.Unlock()

	return true, l.save(symbol, snapshot)
}

// Ensure adds closed entries for symbols not yet tracked.
func (l *Ledger) Ensure(symbols ...string) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()

	l.mu.Lock()
	added := 0
	for _, sym := range symbols {
		if _, ok := l.positions[sym]; !ok {
			l.positions[sym] = model.ClosedPosition()
			added++
		}
	}
	if added == 0 {
		l.mu.Unlock()
		return nil
	}
	snapshot := copyPositions(l.positions)
	l.mu.Unlock()

	return l.save("", snapshot)
}

func (l *Ledger) mutate(symbol string, apply func()) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()

	l.mu.Lock()
	apply()
	snapshot := copyPositions(l.positions)
	l.mu.Unlock()

	return l.save(symbol, snapshot)
}

func (l *Ledger) save(symbol string, snapshot map[string]model.Position) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Save(snapshot); err != nil {
		l.log.WithField("symbol", symbol).WithError(err).Error("Failed to persist ledger")
		return err
	}
	return nil
}
