package teststubs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/feedstore"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/sinks"
)

// StubFetcher is a test double for providers.Fetcher.
type StubFetcher struct {
	mu     sync.Mutex
	body   []byte
	err    error
	urls   []string
	Calls  atomic.Int32
	Notify chan struct{}
}

// NewStubFetcher returns a fetcher that answers every call with body.
func NewStubFetcher(body string) *StubFetcher {
	return &StubFetcher{body: []byte(body), Notify: make(chan struct{}, 64)}
}

// Set swaps the configured response.
func (s *StubFetcher) Set(body string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = []byte(body)
	s.err = err
}

// Fetch returns the configured body and error while tracking calls.
func (s *StubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	_ = ctx
	s.mu.Lock()
	s.urls = append(s.urls, url)
	body, err := s.body, s.err
	s.mu.Unlock()

	s.Calls.Add(1)
	if s.Notify != nil {
		select {
		case s.Notify <- struct{}{}:
		default:
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), body...), nil
}

// URLs returns every URL fetched so far.
func (s *StubFetcher) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

// StubFileWriter is a test double for the poller's file writer.
type StubFileWriter struct {
	mu      sync.Mutex
	written map[string][]byte
	writes  int
	Err     error
}

// Write records data for verification in tests.
func (w *StubFileWriter) Write(file string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	if w.written == nil {
		w.written = make(map[string][]byte)
	}
	w.written[file] = append([]byte(nil), data...)
	w.writes++
	return nil
}

// Read implements the aggregator's reader side against the same map.
func (w *StubFileWriter) Read(file string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.written[file]
	if !ok {
		return nil, feedstore.ErrNotFound
	}
	return data, nil
}

// Writes returns the total successful writes.
func (w *StubFileWriter) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

// StubHeartbeats records heartbeat writes in order.
type StubHeartbeats struct {
	mu      sync.Mutex
	entries []HeartbeatEntry
}

type HeartbeatEntry struct {
	File    string
	Failed  bool
	Message string
}

func (h *StubHeartbeats) Running(file string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, HeartbeatEntry{File: file})
	return nil
}

func (h *StubHeartbeats) Failed(file, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, HeartbeatEntry{File: file, Failed: true, Message: message})
	return nil
}

// Entries returns a copy of the recorded heartbeats.
func (h *StubHeartbeats) Entries() []HeartbeatEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HeartbeatEntry(nil), h.entries...)
}

// StubSink captures broadcasts.
type StubSink struct {
	mu       sync.Mutex
	messages []sinks.Message
	Err      error
	Notify   chan sinks.Message
}

// NewStubSink returns a sink with a buffered notification channel.
func NewStubSink() *StubSink {
	return &StubSink{Notify: make(chan sinks.Message, 64)}
}

func (s *StubSink) Name() string { return "stub" }

func (s *StubSink) Publish(_ context.Context, msg sinks.Message) error {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	err := s.Err
	s.mu.Unlock()

	if s.Notify != nil {
		select {
		case s.Notify <- msg:
		default:
		}
	}
	return err
}

// Messages returns every captured broadcast.
func (s *StubSink) Messages() []sinks.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinks.Message(nil), s.messages...)
}

// Last returns the most recent broadcast.
func (s *StubSink) Last() (sinks.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return sinks.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// ErrStub is a generic failure for tests that only care that something failed.
var ErrStub = errors.New("stub failure")
