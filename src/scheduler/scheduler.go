// Package scheduler runs named jobs on cron schedules with seconds
// precision. A job never overlaps with itself.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  *logger.Entry
}

// New builds a scheduler evaluating schedules in loc. Jobs receive ctx.
func New(ctx context.Context, loc *time.Location, log *logger.Entry) *Scheduler {
	if log == nil {
		log = logger.WithField("component", "scheduler")
	}
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx: ctx,
		log: log,
	}
}

// AddJob registers job under a six-field cron spec, e.g.
//
//	"*/10 * 9-15 * * MON-FRI"  every 10s during market hours
//	"0 19 15 * * MON-FRI"      15:19:00 on weekdays
func (s *Scheduler) AddJob(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", job.Name(), spec, err)
	}
	s.log.WithFields(map[string]interface{}{
		"job":      job.Name(),
		"schedule": spec,
	}).Info("Job registered")
	return nil
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	log := s.log.WithField("job", job.Name())
	log.Debug("Running job")
	if err := job.Run(s.ctx); err != nil {
		log.WithError(err).Error("Job failed")
		return
	}
	log.WithField("elapsed", time.Since(start).String()).Debug("Job completed")
}

// RunNow executes job outside its schedule.
func (s *Scheduler) RunNow(job Job) {
	s.log.WithField("job", job.Name()).Info("Running job immediately")
	s.run(job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop prevents new runs and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

// cronLogger routes cron's own messages to logrus.
type cronLogger struct {
	log *logger.Entry
}

func fields(kv []interface{}) logger.Fields {
	f := logger.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.WithFields(fields(keysAndValues)).WithError(err).Error("cron: " + msg)
}
