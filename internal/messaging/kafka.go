// Package messaging publishes coinwatch chain events to Kafka.
package messaging

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bardlex/coinrpc/pkg/circuit"
	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/log"
	"github.com/bardlex/coinrpc/pkg/retry"
)

// Writer is the part of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WriterFactory builds the writer for one topic.
type WriterFactory func(brokers []string, topic string) Writer

// NewKafkaWriter is the default WriterFactory.
func NewKafkaWriter(brokers []string, topic string) Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Compression:  kafka.Snappy,
	}
}

// Options tune a Publisher. Nil fields take defaults.
type Options struct {
	Retry     *retry.Config
	Breaker   *circuit.Config
	NewWriter WriterFactory
}

// Publisher writes JSON events to Kafka, one cached writer per topic.
type Publisher struct {
	brokers        []string
	logger         *log.Logger
	newWriter      WriterFactory
	writers        map[string]Writer
	writersMu      sync.RWMutex
	circuitBreaker *circuit.Breaker
	retryConfig    *retry.Config
}

// NewPublisher creates a publisher for brokers. No connection is made until
// the first event.
func NewPublisher(brokers []string, logger *log.Logger, opts *Options) *Publisher {
	if opts == nil {
		opts = &Options{}
	}
	if logger == nil {
		logger = log.Discard()
	}

	cbConfig := opts.Breaker
	if cbConfig == nil {
		cbConfig = &circuit.Config{
			Name:            "kafka",
			MaxFailures:     5,
			SuccessRequired: 3,
			Timeout:         15 * time.Second,
			ResetTimeout:    60 * time.Second,
			IsFailure: func(err error) bool {
				return errors.IsType(err, errors.ErrorTypeKafka)
			},
		}
	}
	retryConfig := opts.Retry
	if retryConfig == nil {
		retryConfig = retry.NetworkConfig()
	}
	newWriter := opts.NewWriter
	if newWriter == nil {
		newWriter = NewKafkaWriter
	}

	return &Publisher{
		brokers:        brokers,
		logger:         logger.WithComponent("kafka"),
		newWriter:      newWriter,
		writers:        make(map[string]Writer),
		circuitBreaker: circuit.New(cbConfig),
		retryConfig:    retryConfig,
	}
}

// writer gets or creates the writer for a topic.
func (p *Publisher) writer(topic string) Writer {
	p.writersMu.RLock()
	if w, exists := p.writers[topic]; exists {
		p.writersMu.RUnlock()
		return w
	}
	p.writersMu.RUnlock()

	p.writersMu.Lock()
	defer p.writersMu.Unlock()

	if w, exists := p.writers[topic]; exists {
		return w
	}

	w := p.newWriter(p.brokers, topic)
	p.writers[topic] = w
	p.logger.Info("created Kafka producer", "topic", topic)
	return w
}

// PublishJSON publishes an already encoded JSON payload.
func (p *Publisher) PublishJSON(ctx context.Context, topic, key string, data []byte) error {
	return p.circuitBreaker.Execute(ctx, func() error {
		return retry.Do(ctx, p.retryConfig, func() error {
			msg := kafka.Message{
				Key:   []byte(key),
				Value: data,
				Time:  time.Now(),
			}

			if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
				se := errors.Wrap(err, errors.ErrorTypeKafka, "publish_json",
					"failed to publish JSON message to Kafka").
					WithContext("topic", topic).
					WithContext("key", key).
					WithContext("message_size", len(data))
				var kerr kafka.Error
				if stderrors.As(err, &kerr) {
					se.Retryable = kerr.Temporary()
				}
				return se
			}

			p.logger.LogPublish(topic, key, len(data))
			return nil
		})
	})
}

// PublishEvent encodes v as JSON and publishes it under key.
func (p *Publisher) PublishEvent(ctx context.Context, topic, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "event_marshal",
			"failed to encode event").
			WithContext("topic", topic).
			WithContext("key", key)
	}
	return p.PublishJSON(ctx, topic, key, data)
}

// Close closes every cached writer.
func (p *Publisher) Close() error {
	p.writersMu.Lock()
	defer p.writersMu.Unlock()

	var lastErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			p.logger.Error("failed to close producer", "topic", topic, "error", err)
			lastErr = err
		}
	}

	p.writers = make(map[string]Writer)
	return lastErr
}
