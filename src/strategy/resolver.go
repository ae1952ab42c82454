package strategy

import (
	"context"

	"autotrader/src/model"

	logger "github.com/sirupsen/logrus"
)

// AssignmentSource looks up the active per-symbol override.
type AssignmentSource interface {
	ActiveFor(ctx context.Context, symbol string) (*model.StrategyAssignment, error)
}

// Resolver picks the strategy instance for a symbol: the active assignment
// when one exists and builds cleanly, the process default otherwise.
type Resolver struct {
	registry      *Registry
	data          MarketData
	assignments   AssignmentSource
	defaultName   string
	defaultParams Params
	log           *logger.Entry
}

func NewResolver(registry *Registry, data MarketData, assignments AssignmentSource, cfg Config, log *logger.Entry) *Resolver {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Resolver{
		registry:      registry,
		data:          data,
		assignments:   assignments,
		defaultName:   cfg.DefaultStrategy,
		defaultParams: cfg.DefaultParams(),
		log:           log,
	}
}

// Default builds the process-wide default strategy.
func (r *Resolver) Default() (Strategy, error) {
	return r.registry.Build(r.defaultName, r.data, r.defaultParams)
}

func (r *Resolver) For(ctx context.Context, symbol string) (Strategy, error) {
	if r.assignments != nil {
		row, err := r.assignments.ActiveFor(ctx, symbol)
		switch {
		case err != nil:
			r.log.WithField("symbol", symbol).WithError(err).Debug("strategy assignment lookup failed, using default")
		case row != nil && row.StrategyName != "":
			params, perr := row.Params()
			if perr == nil {
				s, berr := r.registry.Build(row.StrategyName, r.data, params)
				if berr == nil {
					return s, nil
				}
				perr = berr
			}
			r.log.WithFields(map[string]interface{}{
				"symbol":   symbol,
				"strategy": row.StrategyName,
			}).WithError(perr).Warn("invalid strategy assignment, using default")
		}
	}
	return r.Default()
}
