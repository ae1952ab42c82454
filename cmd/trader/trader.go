package trader

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"autotrader/src/database"
	"autotrader/src/executors"
	"autotrader/src/reconciliation"
	"autotrader/src/server"
	"autotrader/src/universe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Trader struct{}

func (t *Trader) open() (*App, error) {
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return nil, err
	}
	return Build(database.MainDB, GetSettings())
}

// Start runs the scheduler and the API server until SIGINT or SIGTERM.
func (t *Trader) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	app, err := t.open()
	if err != nil {
		return err
	}

	logrus.WithFields(map[string]interface{}{
		"symbols":         app.Controller.Universe(),
		"trading_enabled": app.Controller.TradingEnabled(),
		"mock":            app.Settings.KIS.MockTrade,
		"universe_source": app.Settings.Universe.Source,
	}).Info("Starting trader")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.StartServer(ctx, app.Settings.Server.Port, app.Router())
	})
	g.Go(func() error {
		return executors.StartLoop(ctx, app.Settings.Jobs, app.JobDeps())
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("Trader stopped with error")
		return err
	}
	return nil
}

// Liquidate sells every held position once.
func (t *Trader) Liquidate(ctx context.Context) (int, error) {
	app, err := t.open()
	if err != nil {
		return 0, err
	}
	return app.Controller.LiquidateAll(ctx)
}

// Reconcile compares broker holdings with the ledger once.
func (t *Trader) Reconcile(ctx context.Context) ([]reconciliation.Mismatch, error) {
	app, err := t.open()
	if err != nil {
		return nil, err
	}
	return app.Reconciler.Reconcile(ctx, app.Ledger.Snapshot())
}

// Snapshot records one portfolio snapshot.
func (t *Trader) Snapshot(ctx context.Context) error {
	app, err := t.open()
	if err != nil {
		return err
	}
	_, err = app.Portfolio.TakeSnapshot(ctx)
	return err
}

// Discover runs universe discovery once without changing any state.
func (t *Trader) Discover(ctx context.Context) (universe.Result, error) {
	app, err := t.open()
	if err != nil {
		return universe.Result{}, err
	}
	return app.Universe.Discover(ctx), nil
}
