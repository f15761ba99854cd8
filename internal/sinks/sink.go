// Package sinks fans one broadcast out to the push channel and any secondary outputs.
package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/domain/games"
)

// EventGameUpdate is the only event the broadcaster emits.
const EventGameUpdate = "gameUpdate"

// Message is one broadcast of the combined snapshot.
type Message struct {
	Event     string       `json:"event"`
	Data      []games.Game `json:"data"`
	Timestamp int64        `json:"timestamp"`
}

// NewMessage builds a gameUpdate message stamped with at in epoch millis.
func NewMessage(list []games.Game, at time.Time) Message {
	if list == nil {
		list = []games.Game{}
	}
	return Message{
		Event:     EventGameUpdate,
		Data:      list,
		Timestamp: at.UnixMilli(),
	}
}

// Encode marshals the message as sent on the wire.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Event, err)
	}
	return data, nil
}

// Sink receives broadcasts. Implementations must not block the caller for long; wrap slow
// outputs in Async.
type Sink interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
}

// Func adapts a plain function to Sink.
type Func func(ctx context.Context, msg Message) error

func (f Func) Name() string { return "func" }

func (f Func) Publish(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Multi hands each message to every sink in order. One failing sink does not stop the rest.
type Multi []Sink

func (m Multi) Name() string { return "multi" }

func (m Multi) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
