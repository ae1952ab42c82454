package executors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autotrader/src/model"
	"autotrader/src/reconciliation"
	"autotrader/src/scheduler"
	"autotrader/src/universe"

	logger "github.com/sirupsen/logrus"
)

const (
	JobTrade     = "trade"
	JobLiquidate = "liquidate"
	JobSnapshot  = "snapshot"
	JobReconcile = "reconcile"
	JobUniverse  = "universe"
)

type Trader interface {
	Tick(ctx context.Context) error
	LiquidateAll(ctx context.Context) (int, error)
	Positions() map[string]model.Position
	SetUniverse(symbols []string)
}

type Snapshotter interface {
	TakeSnapshot(ctx context.Context) (*model.PortfolioSnapshot, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, positions map[string]model.Position) ([]reconciliation.Mismatch, error)
}

type Discoverer interface {
	Discover(ctx context.Context) universe.Result
}

// Runner runs until ctx is done.
type Runner interface {
	Run(ctx context.Context)
}

// Deps wires the background jobs. Everything but Trader may be nil, which
// leaves the matching job unregistered.
type Deps struct {
	Trader      Trader
	Portfolio   Snapshotter
	Reconciler  Reconciler
	Universe    Discoverer
	Broadcaster Runner
	Location    *time.Location
}

type scheduledJob struct {
	spec string
	job  scheduler.Job
}

type jobScheduler interface {
	AddJob(spec string, job scheduler.Job) error
	RunNow(job scheduler.Job)
	Start()
	Stop()
}

var newScheduler = func(ctx context.Context, loc *time.Location) jobScheduler {
	return scheduler.New(ctx, loc, logger.WithField("component", "scheduler"))
}

// buildJobs lays out the schedule for deps.
func buildJobs(cfg Config, deps Deps) []scheduledJob {
	jobs := []scheduledJob{
		{spec: cfg.TradeCron, job: scheduler.JobFunc{JobName: JobTrade, Fn: deps.Trader.Tick}},
		{spec: cfg.LiquidateCron, job: scheduler.JobFunc{JobName: JobLiquidate, Fn: liquidate(deps.Trader)}},
	}
	if deps.Portfolio != nil {
		jobs = append(jobs, scheduledJob{spec: cfg.SnapshotCron, job: scheduler.JobFunc{
			JobName: JobSnapshot,
			Fn: func(ctx context.Context) error {
				_, err := deps.Portfolio.TakeSnapshot(ctx)
				return err
			},
		}})
	}
	if deps.Reconciler != nil {
		jobs = append(jobs, scheduledJob{spec: cfg.ReconcileCron, job: scheduler.JobFunc{
			JobName: JobReconcile,
			Fn: func(ctx context.Context) error {
				_, err := deps.Reconciler.Reconcile(ctx, deps.Trader.Positions())
				return err
			},
		}})
	}
	if deps.Universe != nil {
		jobs = append(jobs, scheduledJob{spec: cfg.UniverseCron, job: discover(deps.Universe, deps.Trader)})
	}
	return jobs
}

func liquidate(t Trader) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		closed, err := t.LiquidateAll(ctx)
		logger.WithField("closed", closed).Info("End of day liquidation finished")
		return err
	}
}

func discover(d Discoverer, t Trader) scheduler.Job {
	return scheduler.JobFunc{
		JobName: JobUniverse,
		Fn: func(ctx context.Context) error {
			res := d.Discover(ctx)
			if len(res.Symbols) == 0 {
				return fmt.Errorf("universe source %s returned no symbols", res.Source)
			}
			t.SetUniverse(res.Symbols)
			return nil
		},
	}
}

// StartLoop registers the trading jobs and runs them, together with the
// status broadcaster, until ctx is cancelled.
func StartLoop(ctx context.Context, cfg Config, deps Deps) error {
	if deps.Trader == nil {
		return errors.New("trader not set")
	}

	sched := newScheduler(ctx, deps.Location)
	for _, j := range buildJobs(cfg, deps) {
		if err := sched.AddJob(j.spec, j.job); err != nil {
			logger.WithError(err).Error("Failed to register job")
			return err
		}
	}

	if cfg.DiscoverOnStart && deps.Universe != nil {
		sched.RunNow(discover(deps.Universe, deps.Trader))
	}

	sched.Start()
	if deps.Broadcaster != nil {
		go deps.Broadcaster.Run(ctx)
	}

	<-ctx.Done()
	logger.Info("loop stopped")
	sched.Stop()
	return nil
}
