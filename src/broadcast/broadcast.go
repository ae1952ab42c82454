// Package broadcast pushes periodic status updates and queued trade
// events to connected observers.
package broadcast

import (
	"context"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

const (
	TypeStatusUpdate = "status_update"
	TypeTradeEvent   = "trade_event"
)

// Message is the envelope for status updates.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Queue collects events produced by the trading jobs until the next
// broadcast. Safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	pending []any
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Push(msg any) {
	q.mu.Lock()
	q.pending = append(q.pending, msg)
	q.mu.Unlock()
}

// Drain removes and returns everything queued, oldest first.
func (q *Queue) Drain() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Sink delivers one message to every observer.
type Sink interface {
	Broadcast(msg any) error
}

// StatusFunc produces the current status payload.
type StatusFunc func(ctx context.Context) any

type Broadcaster struct {
	queue    *Queue
	sink     Sink
	status   StatusFunc
	interval time.Duration
	log      *logger.Entry
}

func NewBroadcaster(queue *Queue, sink Sink, status StatusFunc, interval time.Duration, log *logger.Entry) *Broadcaster {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = logger.WithField("component", "broadcaster")
	}
	return &Broadcaster{queue: queue, sink: sink, status: status, interval: interval, log: log}
}

// Run broadcasts every interval until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Debug("Broadcaster stopped")
			return
		case <-ticker.C:
			b.Flush(ctx)
		}
	}
}

// Flush sends one status update then every queued event. Delivery
// failures are logged and dropped.
func (b *Broadcaster) Flush(ctx context.Context) {
	if b.status != nil {
		msg := Message{Type: TypeStatusUpdate, Payload: b.status(ctx)}
		if err := b.sink.Broadcast(msg); err != nil {
			b.log.WithError(err).Debug("Status broadcast failed")
		}
	}
	for _, ev := range b.queue.Drain() {
		if err := b.sink.Broadcast(ev); err != nil {
			b.log.WithError(err).Debug("Trade event broadcast failed")
		}
	}
}
