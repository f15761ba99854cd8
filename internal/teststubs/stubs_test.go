package teststubs

import (
	"context"
	"errors"
	"testing"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/feedstore"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/sinks"
)

func TestStubFetcherTracksCalls(t *testing.T) {
	f := NewStubFetcher(`{"events":[]}`)
	body, err := f.Fetch(context.Background(), "https://x/nfl")
	if err != nil || string(body) != `{"events":[]}` {
		t.Fatalf("unexpected fetch result %q err=%v", body, err)
	}

	f.Set("", ErrStub)
	if _, err := f.Fetch(context.Background(), "https://x/nfl"); !errors.Is(err, ErrStub) {
		t.Fatalf("expected error passthrough, got %v", err)
	}
	if f.Calls.Load() != 2 {
		t.Fatalf("expected call count 2, got %d", f.Calls.Load())
	}
	if urls := f.URLs(); len(urls) != 2 || urls[0] != "https://x/nfl" {
		t.Fatalf("unexpected urls %v", urls)
	}
}

func TestStubFileWriter(t *testing.T) {
	w := &StubFileWriter{}
	if _, err := w.Read("nfl.json"); !errors.Is(err, feedstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := w.Write("nfl.json", []byte("{}")); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := w.Read("nfl.json")
	if err != nil || string(data) != "{}" || w.Writes() != 1 {
		t.Fatalf("unexpected read %q err=%v writes=%d", data, err, w.Writes())
	}

	w.Err = ErrStub
	if err := w.Write("nfl.json", nil); !errors.Is(err, ErrStub) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestStubHeartbeats(t *testing.T) {
	h := &StubHeartbeats{}
	_ = h.Running("nfl.json")
	_ = h.Failed("nfl.json", "boom")

	entries := h.Entries()
	if len(entries) != 2 || entries[0].Failed || !entries[1].Failed || entries[1].Message != "boom" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestStubSinkCapturesMessages(t *testing.T) {
	s := NewStubSink()
	if _, ok := s.Last(); ok {
		t.Fatalf("expected no messages yet")
	}
	s.Err = ErrStub
	err := s.Publish(context.Background(), sinks.Message{Event: sinks.EventGameUpdate, Timestamp: 7})
	if !errors.Is(err, ErrStub) {
		t.Fatalf("expected configured error, got %v", err)
	}
	last, ok := s.Last()
	if !ok || last.Timestamp != 7 || len(s.Messages()) != 1 {
		t.Fatalf("unexpected capture %+v", last)
	}
	select {
	case <-s.Notify:
	default:
		t.Fatalf("expected notification")
	}
}
