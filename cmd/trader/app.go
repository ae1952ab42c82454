package trader

import (
	"context"
	"fmt"
	"net/http"

	"autotrader/src/broadcast"
	"autotrader/src/connectors"
	"autotrader/src/controller"
	"autotrader/src/executors"
	"autotrader/src/ledger"
	"autotrader/src/notify"
	"autotrader/src/orders"
	"autotrader/src/portfolio"
	"autotrader/src/reconciliation"
	"autotrader/src/repository"
	"autotrader/src/risk"
	"autotrader/src/scoring"
	"autotrader/src/server"
	"autotrader/src/strategy"
	"autotrader/src/universe"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App is the fully wired trader.
type App struct {
	Settings Settings

	Client      *connectors.Client
	Registry    *strategy.Registry
	Risk        *risk.Gate
	Ledger      *ledger.Ledger
	Controller  *controller.TradingController
	Portfolio   *portfolio.Service
	Reconciler  *reconciliation.Service
	Universe    *universe.Service
	Slack       *notify.Slack
	Events      *broadcast.Queue
	Hub         *server.Hub
	Broadcaster *broadcast.Broadcaster

	Trades      *repository.TradeRepository
	Decisions   *repository.DecisionRepository
	Assignments *repository.AssignmentRepository
	Snapshots   *repository.SnapshotRepository
	Exceptions  *repository.ExceptionRepository
}

// Build wires every component on top of db.
func Build(db *gorm.DB, s Settings) (*App, error) {
	log := logrus.WithField("service", "trader")

	gate := connectors.NewGate(s.KIS.GateConfig(), log.WithField("component", "kis_gate"))
	client, err := connectors.NewClient(s.KIS, gate, connectors.NewTokenProvider(s.KIS, gate))
	if err != nil {
		return nil, fmt.Errorf("kis client: %w", err)
	}

	riskGate, err := risk.NewGate(s.Risk)
	if err != nil {
		return nil, fmt.Errorf("risk gate: %w", err)
	}

	app := &App{
		Settings:    s,
		Client:      client,
		Registry:    strategy.DefaultRegistry(),
		Risk:        riskGate,
		Slack:       notify.NewSlack(s.Slack),
		Events:      broadcast.NewQueue(),
		Hub:         server.NewHub(s.Server.CorsOrigins, log.WithField("component", "ws_hub")),
		Trades:      repository.NewTradeRepository().WithDB(db),
		Decisions:   repository.NewDecisionRepository().WithDB(db),
		Assignments: repository.NewAssignmentRepository().WithDB(db),
		Snapshots:   repository.NewSnapshotRepository().WithDB(db),
		Exceptions:  repository.NewExceptionRepository().WithDB(db),
	}

	targets := controller.NormalizeSymbols(s.Controller.TargetSymbols)
	app.Ledger = ledger.Load(
		ledger.NewFileStore(ledger.DefaultPath(s.KIS.DataDir)),
		targets,
		log.WithField("component", "ledger"),
	)

	resolver := strategy.NewResolver(app.Registry, client, app.Assignments, s.Strategy, log.WithField("component", "strategy_resolver"))

	app.Controller = controller.NewTradingController(controller.Deps{
		Account:    client,
		Strategies: resolver,
		Orders:     orders.NewExecutor(log.WithField("component", "orders"), client, app.Trades),
		Ledger:     app.Ledger,
		Risk:       riskGate,
		Decisions:  app.Decisions,
		History:    app.Trades,
		Events:     app.Events,
		Notifier:   app.Slack,
		Exceptions: app.Exceptions,
	}, s.Controller, log.WithField("component", "trading_controller"))

	app.Portfolio = portfolio.NewService(portfolio.Deps{
		Account:   client,
		Trades:    app.Trades,
		Snapshots: app.Snapshots,
		Positions: app.Ledger,
		Controls:  app.Controller,
		Clock:     riskGate,
	}, log.WithField("component", "portfolio"))

	app.Reconciler = reconciliation.NewService(client, app.Slack, log.WithField("component", "reconciliation"))

	app.Universe, err = universe.NewService(
		s.Universe,
		targets,
		client,
		scoring.NewService(client, log.WithField("component", "scoring")),
		log.WithField("component", "universe"),
	)
	if err != nil {
		return nil, fmt.Errorf("universe: %w", err)
	}

	app.Broadcaster = broadcast.NewBroadcaster(app.Events, app.Hub, app.status, s.Jobs.BroadcastInterval, log.WithField("component", "broadcaster"))
	return app, nil
}

func (a *App) status(ctx context.Context) any {
	return a.Portfolio.Status(ctx)
}

// Router is the HTTP surface of the app.
func (a *App) Router() http.Handler {
	return server.NewRouter(server.Deps{
		Status:      a.Portfolio,
		Trades:      a.Trades,
		Decisions:   a.Decisions,
		Strategies:  a.Registry,
		Assignments: a.Assignments,
		Portfolio:   a.Portfolio,
		Bot:         a.Controller,
		Exceptions:  a.Exceptions,
		Hub:         a.Hub,
	}, a.Settings.Server, a.Settings.Security.AdminTokenHash)
}

// JobDeps feeds the scheduler. Discovery is only scheduled for dynamic
// universe sources.
func (a *App) JobDeps() executors.Deps {
	deps := executors.Deps{
		Trader:      a.Controller,
		Portfolio:   a.Portfolio,
		Reconciler:  a.Reconciler,
		Broadcaster: a.Broadcaster,
		Location:    a.Risk.Location(),
	}
	if a.Settings.Universe.Source != universe.SourceFixed {
		deps.Universe = a.Universe
	}
	return deps
}
