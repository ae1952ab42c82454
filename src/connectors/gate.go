package connectors

import (
	"context"
	"sync"
	"time"

	"autotrader/src/metrics"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// RetryPolicy selects which failures a gated request retries.
type RetryPolicy int

const (
	// RetryTransient retries every transient failure. Used for reads.
	RetryTransient RetryPolicy = iota
	// RetryBeforeSend retries only failures that never reached the broker,
	// so an order that may have been accepted is never submitted twice.
	RetryBeforeSend
)

func (p RetryPolicy) retryable(err error) bool {
	switch p {
	case RetryBeforeSend:
		return IsNotSent(err)
	default:
		return IsTransient(err)
	}
}

// Condition builds a resty retry condition. classify maps one attempt's
// outcome onto the error taxonomy; nil means success.
func (p RetryPolicy) Condition(classify func(*resty.Response, error) error) resty.RetryConditionFunc {
	return func(resp *resty.Response, err error) bool {
		return p.retryable(classify(resp, err))
	}
}

type GateConfig struct {
	MinInterval time.Duration
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

// DefaultGateConfig is 250ms spacing, 3 attempts, backoff 2s..10s.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinInterval: 250 * time.Millisecond,
		MaxAttempts: 3,
		BackoffMin:  2 * time.Second,
		BackoffMax:  10 * time.Second,
	}
}

// Gate is the single process-wide entry point for broker calls. It spaces
// call starts by at least MinInterval and sets the retry budget of every
// resty client attached to it.
type Gate struct {
	mu   sync.Mutex
	last time.Time

	cfg   GateConfig
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	log   *logger.Entry
}

func NewGate(cfg GateConfig, log *logger.Entry) *Gate {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = cfg.BackoffMin
	}
	if log == nil {
		log = logger.WithField("component", "kis_gate")
	}
	return &Gate{
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepContext,
		log:   log,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait blocks until the caller may start a call and returns the start slot.
// The lock is held while sleeping so slots are handed out one at a time.
func (g *Gate) Wait(ctx context.Context) (time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() {
		if wait := g.last.Add(g.cfg.MinInterval).Sub(g.now()); wait > 0 {
			if err := g.sleep(ctx, wait); err != nil {
				return time.Time{}, err
			}
		}
	}
	g.last = g.now()
	return g.last, nil
}

// Backoff returns the delay after the given failed attempt (1-based):
// BackoffMin doubled per attempt, capped at BackoffMax.
func (g *Gate) Backoff(attempt int) time.Duration {
	d := g.cfg.BackoffMin
	for i := 1; i < attempt && d < g.cfg.BackoffMax; i++ {
		d *= 2
	}
	if d > g.cfg.BackoffMax {
		d = g.cfg.BackoffMax
	}
	return d
}

// Attach routes every attempt made by c through the gate and backs off per
// Backoff between attempts. Which failures retry is decided per request by a
// RetryPolicy condition.
func (g *Gate) Attach(c *resty.Client) *resty.Client {
	return c.
		SetLogger(g.log).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			_, err := g.Wait(r.Context())
			return err
		}).
		SetRetryCount(g.cfg.MaxAttempts - 1).
		SetRetryWaitTime(g.cfg.BackoffMin).
		SetRetryMaxWaitTime(g.cfg.BackoffMax).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			return g.Backoff(resp.Request.Attempt), nil
		}).
		AddRetryHook(g.onRetry)
}

// resty also calls retry hooks after the final attempt; that one is skipped.
func (g *Gate) onRetry(resp *resty.Response, err error) {
	if resp == nil || resp.Request == nil || resp.Request.Attempt >= g.cfg.MaxAttempts {
		return
	}
	attempt := resp.Request.Attempt
	op := opFrom(resp.Request.Context())

	entry := g.log.WithFields(map[string]interface{}{
		"op":      op,
		"attempt": attempt,
		"status":  resp.StatusCode(),
		"delay":   g.Backoff(attempt).String(),
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("Retrying broker call")
	metrics.APIRetries.WithLabelValues(op).Inc()
}

type opKey struct{}

// withOp tags ctx with the operation name used in retry logs and metrics.
func withOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

func opFrom(ctx context.Context) string {
	if op, ok := ctx.Value(opKey{}).(string); ok {
		return op
	}
	return "unknown"
}
