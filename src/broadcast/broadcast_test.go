package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []any
	fail bool
}

func (r *recordingSink) Broadcast(msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	if r.fail {
		return errors.New("no clients")
	}
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestQueue_DrainEmpties(t *testing.T) {
	q := NewQueue()
	q.Push("a")
	q.Push("b")
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []any{"a", "b"}, q.Drain())
	assert.Empty(t, q.Drain())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Push(i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, q.Drain(), 50)
}

func TestFlush_StatusThenEvents(t *testing.T) {
	q := NewQueue()
	q.Push(map[string]any{"type": TypeTradeEvent, "symbol": "005930"})
	sink := &recordingSink{fail: true}
	b := NewBroadcaster(q, sink, func(context.Context) any { return map[string]int{"cash": 1} }, time.Second, nil)

	b.Flush(context.Background())

	require.Len(t, sink.msgs, 2)
	status, ok := sink.msgs[0].(Message)
	require.True(t, ok)
	assert.Equal(t, TypeStatusUpdate, status.Type)
	assert.Equal(t, map[string]any{"type": TypeTradeEvent, "symbol": "005930"}, sink.msgs[1])
	assert.Equal(t, 0, q.Len(), "failed deliveries are not requeued")
}

func TestRun_StopsOnCancel(t *testing.T) {
	sink := &recordingSink{}
	b := NewBroadcaster(NewQueue(), sink, func(context.Context) any { return "ok" }, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sink.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop")
	}
}
