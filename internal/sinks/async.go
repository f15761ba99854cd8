package sinks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
)

const (
	defaultQueueSize      = 16
	defaultPublishTimeout = 5 * time.Second
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("sink closed")

// AsyncConfig tunes an Async wrapper.
type AsyncConfig struct {
	QueueSize      int
	PublishTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Recorder
}

// Async decouples a slow sink from the broadcaster. Publish never blocks: when the queue is
// full the oldest pending message is dropped, since only the latest snapshot matters.
type Async struct {
	sink    Sink
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Recorder

	queue   chan Message
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	closed  atomic.Bool
	once    sync.Once
	dropped atomic.Int64
}

// NewAsync starts the delivery goroutine for sink.
func NewAsync(sink Sink, cfg AsyncConfig) *Async {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Async{
		sink:    sink,
		timeout: timeout,
		logger:  logging.Component(cfg.Logger, "sink."+sink.Name()),
		metrics: cfg.Metrics,
		queue:   make(chan Message, size),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Name() string { return a.sink.Name() }

// Publish enqueues msg for background delivery.
func (a *Async) Publish(_ context.Context, msg Message) error {
	if a.closed.Load() {
		return ErrClosed
	}
	for {
		select {
		case a.queue <- msg:
			return nil
		default:
		}
		select {
		case <-a.queue:
			a.dropped.Add(1)
		default:
		}
	}
}

// Dropped reports how many queued messages were discarded in favour of newer ones.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops delivery and waits for the in-flight publish to finish or ctx to expire.
// Messages still queued are discarded.
func (a *Async) Close(ctx context.Context) error {
	a.once.Do(func() {
		a.closed.Store(true)
		a.cancel()
	})
	select {
	case <-a.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if c, ok := a.sink.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (a *Async) run() {
	defer close(a.done)
	for {
		select {
		case <-a.ctx.Done():
			return
		case msg := <-a.queue:
			a.deliver(msg)
		}
	}
}

func (a *Async) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(a.ctx, a.timeout)
	defer cancel()

	if err := a.sink.Publish(ctx, msg); err != nil {
		if a.ctx.Err() != nil {
			return
		}
		a.metrics.RecordSinkError(a.sink.Name())
		logging.Error(a.logger, "sink publish failed", err, logging.FieldCount, len(msg.Data))
	}
}
