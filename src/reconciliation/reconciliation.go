// Package reconciliation compares the ledger against broker holdings.
// It only reports divergence; neither side is ever corrected.
package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"autotrader/src/metrics"
	"autotrader/src/model"

	logger "github.com/sirupsen/logrus"
)

type HoldingsSource interface {
	Holdings(ctx context.Context) ([]model.Holding, error)
}

type Alerter interface {
	Notify(ctx context.Context, text string)
}

// Mismatch is a symbol whose broker and local quantities differ. A side
// that does not hold the symbol reports zero.
type Mismatch struct {
	Symbol         string `json:"symbol"`
	BrokerQuantity int64  `json:"broker_quantity"`
	LocalQuantity  int64  `json:"local_quantity"`
}

type Service struct {
	broker HoldingsSource
	alerts Alerter
	log    *logger.Entry
}

func NewService(broker HoldingsSource, alerts Alerter, log *logger.Entry) *Service {
	if log == nil {
		log = logger.WithField("component", "reconciliation")
	}
	return &Service{broker: broker, alerts: alerts, log: log}
}

// Reconcile fetches broker holdings and diffs them against positions.
// A non-empty result raises exactly one alert.
func (s *Service) Reconcile(ctx context.Context, positions map[string]model.Position) ([]Mismatch, error) {
	holdings, err := s.broker.Holdings(ctx)
	if err != nil {
		s.log.WithError(err).Error("Reconciliation skipped, holdings unavailable")
		return nil, fmt.Errorf("fetch holdings: %w", err)
	}

	mismatches := Compare(BrokerQuantities(holdings), LocalQuantities(positions))
	metrics.ReconciliationMismatches.Set(float64(len(mismatches)))

	if len(mismatches) == 0 {
		s.log.Info("Reconciliation complete, positions match")
		return nil, nil
	}

	msg := FormatAlert(mismatches)
	s.log.WithField("mismatches", len(mismatches)).Warn(msg)
	if s.alerts != nil {
		s.alerts.Notify(ctx, msg)
	}
	return mismatches, nil
}

// BrokerQuantities keeps rows with a positive quantity.
func BrokerQuantities(holdings []model.Holding) map[string]int64 {
	out := make(map[string]int64, len(holdings))
	for _, h := range holdings {
		if h.Symbol == "" || h.Quantity <= 0 {
			continue
		}
		out[h.Symbol] += h.Quantity
	}
	return out
}

// LocalQuantities keeps held positions with a positive quantity.
func LocalQuantities(positions map[string]model.Position) map[string]int64 {
	out := make(map[string]int64, len(positions))
	for sym, p := range positions {
		if p.Held && p.Quantity > 0 {
			out[sym] = p.Quantity
		}
	}
	return out
}

// Compare returns the symbols whose quantities differ, sorted by symbol.
func Compare(broker, local map[string]int64) []Mismatch {
	symbols := make(map[string]struct{}, len(broker)+len(local))
	for s := range broker {
		symbols[s] = struct{}{}
	}
	for s := range local {
		symbols[s] = struct{}{}
	}

	var out []Mismatch
	for s := range symbols {
		if broker[s] != local[s] {
			out = append(out, Mismatch{Symbol: s, BrokerQuantity: broker[s], LocalQuantity: local[s]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func FormatAlert(mismatches []Mismatch) string {
	var b strings.Builder
	b.WriteString("[RECONCILIATION] position mismatch detected:")
	for _, m := range mismatches {
		fmt.Fprintf(&b, "\n  %s: broker=%d vs local=%d", m.Symbol, m.BrokerQuantity, m.LocalQuantity)
	}
	return b.String()
}
