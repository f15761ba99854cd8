package sinks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
)

type gatedSink struct {
	started chan struct{}
	gate    chan struct{}
	err     error

	mu     sync.Mutex
	got    []int64
	closed bool
}

func newGatedSink() *gatedSink {
	return &gatedSink{started: make(chan struct{}, 16), gate: make(chan struct{})}
}

func (g *gatedSink) Name() string { return "gated" }

func (g *gatedSink) Publish(ctx context.Context, msg Message) error {
	g.started <- struct{}{}
	select {
	case <-g.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.mu.Lock()
	g.got = append(g.got, msg.Timestamp)
	g.mu.Unlock()
	return g.err
}

func (g *gatedSink) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *gatedSink) received() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.got...)
}

func waitStarted(t *testing.T, g *gatedSink) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(time.Second):
		t.Fatalf("expected publish to start")
	}
}

func TestAsyncDropsOldestWhenQueueFull(t *testing.T) {
	inner := newGatedSink()
	a := NewAsync(inner, AsyncConfig{QueueSize: 2})
	defer a.Close(context.Background())

	_ = a.Publish(context.Background(), Message{Timestamp: 1})
	waitStarted(t, inner)

	for ts := int64(2); ts <= 4; ts++ {
		if err := a.Publish(context.Background(), Message{Timestamp: ts}); err != nil {
			t.Fatalf("publish %d: %v", ts, err)
		}
	}
	if a.Dropped() != 1 {
		t.Fatalf("expected one dropped message, got %d", a.Dropped())
	}

	close(inner.gate)
	deadline := time.After(time.Second)
	for len(inner.received()) < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected three deliveries, got %v", inner.received())
		case <-time.After(5 * time.Millisecond):
		}
	}
	got := inner.received()
	if got[0] != 1 || got[1] != 3 || got[2] != 4 {
		t.Fatalf("expected oldest pending dropped, got %v", got)
	}
}

func TestAsyncRecordsSinkErrors(t *testing.T) {
	inner := newGatedSink()
	inner.err = errors.New("down")
	close(inner.gate)
	rec := metrics.NewRecorder()
	a := NewAsync(inner, AsyncConfig{Metrics: rec})
	defer a.Close(context.Background())

	_ = a.Publish(context.Background(), Message{Timestamp: 1})
	waitStarted(t, inner)

	deadline := time.After(time.Second)
	for rec.Pipeline().SinkErrors == 0 {
		select {
		case <-deadline:
			t.Fatalf("expected sink error recorded")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAsyncCloseRejectsPublishAndClosesInner(t *testing.T) {
	inner := newGatedSink()
	a := NewAsync(inner, AsyncConfig{})

	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Publish(context.Background(), Message{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	inner.mu.Lock()
	closed := inner.closed
	inner.mu.Unlock()
	if !closed {
		t.Fatalf("expected inner sink closed")
	}
	if a.Name() != "gated" {
		t.Fatalf("expected inner name, got %q", a.Name())
	}
}

func TestAsyncCloseCancelsInFlightPublish(t *testing.T) {
	inner := newGatedSink()
	a := NewAsync(inner, AsyncConfig{PublishTimeout: time.Minute})

	_ = a.Publish(context.Background(), Message{Timestamp: 1})
	waitStarted(t, inner)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		t.Fatalf("expected close to cancel in-flight publish, got %v", err)
	}
}
