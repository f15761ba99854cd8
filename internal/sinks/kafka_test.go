package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeKafkaWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublishWritesOneMessage(t *testing.T) {
	w := &fakeKafkaWriter{}
	sink := newKafkaWithWriter(w, "ticker.games")
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	msg := NewMessage(nil, fixed)
	if err := sink.Publish(context.Background(), msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	want, _ := msg.Encode()
	got := w.msgs[0]
	if string(got.Key) != EventGameUpdate || string(got.Value) != string(want) || !got.Time.Equal(fixed) {
		t.Fatalf("unexpected message %+v", got)
	}
	if err := sink.Close(); err != nil || !w.closed {
		t.Fatalf("expected writer closed, err=%v", err)
	}
}

func TestKafkaPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("boom")
	sink := newKafkaWithWriter(&fakeKafkaWriter{err: boom}, "t")
	if err := sink.Publish(context.Background(), NewMessage(nil, time.Now())); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped writer error, got %v", err)
	}
}

func TestNewKafkaValidatesOptions(t *testing.T) {
	if _, err := NewKafka(KafkaOptions{Topic: "t"}); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewKafka(KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: " "}); err == nil {
		t.Fatalf("expected error without topic")
	}
	sink, err := NewKafka(KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.Name() != "kafka" {
		t.Fatalf("unexpected name %q", sink.Name())
	}
	_ = sink.Close()
}
