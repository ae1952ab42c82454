package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJob_RejectsBadSpec(t *testing.T) {
	s := New(context.Background(), time.UTC, nil)
	err := s.AddJob("* * *", JobFunc{JobName: "bad", Fn: func(context.Context) error { return nil }})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Entries())
}

func TestJobsRunWithoutOverlap(t *testing.T) {
	log, _ := logrustest.NewNullLogger()
	s := New(context.Background(), time.UTC, log.WithField("test", t.Name()))

	var running, maxRunning, runs int32
	release := make(chan struct{})
	job := JobFunc{JobName: "slow", Fn: func(context.Context) error {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		atomic.AddInt32(&runs, 1)
		<-release
		atomic.AddInt32(&running, -1)
		return nil
	}}
	require.NoError(t, s.AddJob("* * * * * *", job))
	s.Start()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(1500 * time.Millisecond)
	close(release)
	s.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestRunNow_LogsFailure(t *testing.T) {
	log, hook := logrustest.NewNullLogger()
	s := New(context.Background(), time.UTC, log.WithField("test", t.Name()))

	s.RunNow(JobFunc{JobName: "broken", Fn: func(context.Context) error { return errors.New("boom") }})

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Job failed", hook.LastEntry().Message)
	assert.Equal(t, "broken", hook.LastEntry().Data["job"])
}
