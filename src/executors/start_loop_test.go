package executors

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"autotrader/src/model"
	"autotrader/src/reconciliation"
	"autotrader/src/scheduler"
	"autotrader/src/universe"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrader struct {
	mu         sync.Mutex
	ticks      int
	liquidated int
	universe   []string
	positions  map[string]model.Position
}

func (f *fakeTrader) Tick(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	return nil
}

func (f *fakeTrader) LiquidateAll(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liquidated++
	return 1, nil
}

func (f *fakeTrader) Positions() map[string]model.Position { return f.positions }

func (f *fakeTrader) SetUniverse(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.universe = symbols
}

type fakeSnapshots struct{ calls int }

func (f *fakeSnapshots) TakeSnapshot(context.Context) (*model.PortfolioSnapshot, error) {
	f.calls++
	return &model.PortfolioSnapshot{}, nil
}

type fakeReconciler struct {
	got map[string]model.Position
}

func (f *fakeReconciler) Reconcile(_ context.Context, positions map[string]model.Position) ([]reconciliation.Mismatch, error) {
	f.got = positions
	return nil, nil
}

type fakeDiscoverer struct{ res universe.Result }

func (f fakeDiscoverer) Discover(context.Context) universe.Result { return f.res }

type recordingScheduler struct {
	specs   map[string]string
	ranNow  []string
	started bool
	stopped bool
	addErr  error
}

func (r *recordingScheduler) AddJob(spec string, job scheduler.Job) error {
	if r.addErr != nil {
		return r.addErr
	}
	r.specs[job.Name()] = spec
	return nil
}

func (r *recordingScheduler) RunNow(job scheduler.Job) {
	r.ranNow = append(r.ranNow, job.Name())
	_ = job.Run(context.Background())
}

func (r *recordingScheduler) Start() { r.started = true }
func (r *recordingScheduler) Stop()  { r.stopped = true }

func useRecorder(t *testing.T, rec *recordingScheduler) {
	old := newScheduler
	t.Cleanup(func() { newScheduler = old })
	newScheduler = func(context.Context, *time.Location) jobScheduler { return rec }
}

func testConfig() Config {
	return Config{
		TradeCron:         "*/10 * 9-15 * * MON-FRI",
		LiquidateCron:     "0 19 15 * * MON-FRI",
		SnapshotCron:      "0 */5 * * * *",
		ReconcileCron:     "0 0,30 * * * *",
		UniverseCron:      "0 50 8 * * MON-FRI",
		BroadcastInterval: time.Second,
		DiscoverOnStart:   true,
	}
}

type countingRunner struct{ started chan struct{} }

func (c countingRunner) Run(ctx context.Context) {
	close(c.started)
	<-ctx.Done()
}

func TestStartLoop_RegistersEveryJob(t *testing.T) {
	rec := &recordingScheduler{specs: map[string]string{}}
	useRecorder(t, rec)

	trader := &fakeTrader{}
	runner := countingRunner{started: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- StartLoop(ctx, testConfig(), Deps{
			Trader:      trader,
			Portfolio:   &fakeSnapshots{},
			Reconciler:  &fakeReconciler{},
			Universe:    fakeDiscoverer{res: universe.Result{Source: universe.SourceVolume, Symbols: []string{"035720"}}},
			Broadcaster: runner,
		})
	}()

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcaster not started")
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, map[string]string{
		JobTrade:     "*/10 * 9-15 * * MON-FRI",
		JobLiquidate: "0 19 15 * * MON-FRI",
		JobSnapshot:  "0 */5 * * * *",
		JobReconcile: "0 0,30 * * * *",
		JobUniverse:  "0 50 8 * * MON-FRI",
	}, rec.specs)
	assert.Equal(t, []string{JobUniverse}, rec.ranNow)
	assert.Equal(t, []string{"035720"}, trader.universe)
	assert.True(t, rec.started)
	assert.True(t, rec.stopped)
}

func TestStartLoop_OptionalJobsSkipped(t *testing.T) {
	rec := &recordingScheduler{specs: map[string]string{}}
	useRecorder(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, StartLoop(ctx, testConfig(), Deps{Trader: &fakeTrader{}}))

	assert.Len(t, rec.specs, 2)
	assert.Contains(t, rec.specs, JobTrade)
	assert.Contains(t, rec.specs, JobLiquidate)
	assert.Empty(t, rec.ranNow)
}

func TestStartLoop_Errors(t *testing.T) {
	require.Error(t, StartLoop(context.Background(), testConfig(), Deps{}))

	rec := &recordingScheduler{specs: map[string]string{}, addErr: errors.New("bad spec")}
	useRecorder(t, rec)
	err := StartLoop(context.Background(), testConfig(), Deps{Trader: &fakeTrader{}})
	require.Error(t, err)
	assert.False(t, rec.started)
}

func TestJobs_Delegate(t *testing.T) {
	trader := &fakeTrader{positions: map[string]model.Position{
		"005930": {Held: true, Quantity: 10, EntryPrice: decimal.NewFromInt(70000)},
	}}
	snaps := &fakeSnapshots{}
	recon := &fakeReconciler{}

	jobs := buildJobs(testConfig(), Deps{Trader: trader, Portfolio: snaps, Reconciler: recon})
	require.Len(t, jobs, 4)
	for _, j := range jobs {
		require.NoError(t, j.job.Run(context.Background()), j.job.Name())
	}

	assert.Equal(t, 1, trader.ticks)
	assert.Equal(t, 1, trader.liquidated)
	assert.Equal(t, 1, snaps.calls)
	assert.Equal(t, trader.positions, recon.got)
}

func TestDiscoverJob_EmptyResultKeepsUniverse(t *testing.T) {
	trader := &fakeTrader{universe: []string{"005930"}}
	job := discover(fakeDiscoverer{res: universe.Result{Source: universe.SourceCondition}}, trader)

	require.Error(t, job.Run(context.Background()))
	assert.Equal(t, []string{"005930"}, trader.universe)
}

func TestDefaultSchedulesAreValid(t *testing.T) {
	cfg := GetConfig()
	s := scheduler.New(context.Background(), time.UTC, nil)
	noop := func(string) scheduler.Job {
		return scheduler.JobFunc{JobName: "noop", Fn: func(context.Context) error { return nil }}
	}

	for _, spec := range []string{cfg.TradeCron, cfg.LiquidateCron, cfg.SnapshotCron, cfg.ReconcileCron, cfg.UniverseCron} {
		require.NoError(t, s.AddJob(spec, noop(spec)), spec)
	}
	assert.Equal(t, 5, s.Entries())
	assert.Equal(t, 5*time.Second, cfg.BroadcastInterval)
}
