package sinks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOptions configures the Kafka sink.
type KafkaOptions struct {
	Brokers []string
	Topic   string
}

// Kafka writes one message per broadcast to a topic.
type Kafka struct {
	writer kafkaMessageWriter
	topic  string
	now    func() time.Time
}

// NewKafka builds a Kafka sink writing with leader acknowledgement.
func NewKafka(opts KafkaOptions) (*Kafka, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	if strings.TrimSpace(opts.Topic) == "" {
		return nil, errors.New("kafka sink requires a topic")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(opts.Brokers...),
		Topic:                  opts.Topic,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: false,
	}
	return newKafkaWithWriter(w, opts.Topic), nil
}

func newKafkaWithWriter(w kafkaMessageWriter, topic string) *Kafka {
	return &Kafka{writer: w, topic: topic, now: time.Now}
}

func (k *Kafka) Name() string { return "kafka" }

// Publish writes msg keyed by its event name.
func (k *Kafka) Publish(ctx context.Context, msg Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Event),
		Value: data,
		Time:  k.now(),
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", k.topic, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
