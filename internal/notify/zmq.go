// Package notify receives the ZeroMQ notifications a daemon publishes when
// it sees new blocks and transactions.
package notify

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"
	zmq "github.com/pebbe/zmq4"

	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/log"
)

// Daemon notification topics
const (
	TopicHashBlock = "hashblock"
	TopicHashTx    = "hashtx"
	TopicRawBlock  = "rawblock"
	TopicRawTx     = "rawtx"
)

// Notification is one message of a daemon topic. Hash is the block or
// transaction hash in display order for every topic; Body carries the
// serialized payload for the raw topics. Missed counts the notifications of
// the topic lost since the previous one.
type Notification struct {
	Topic      string
	Hash       string
	Body       []byte
	Sequence   uint32
	Missed     uint32
	ReceivedAt time.Time
}

// IsBlock reports whether the notification announces a block.
func (n Notification) IsBlock() bool {
	return n.Topic == TopicHashBlock || n.Topic == TopicRawBlock
}

// Handler processes one notification. A returned error is logged and the
// subscriber keeps listening.
type Handler func(ctx context.Context, n Notification) error

// Subscriber listens to a daemon's ZMQ publisher
type Subscriber struct {
	socket       *zmq.Socket
	endpoint     string
	logger       *log.Logger
	pollInterval time.Duration
	gaps         *SequenceTracker
}

// NewSubscriber creates a SUB socket subscribed to topics and connects it to
// endpoint.
func NewSubscriber(endpoint string, topics []string, logger *log.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = log.Discard()
	}

	socket, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeZMQ, "zmq_socket", "failed to create ZMQ socket")
	}

	s := &Subscriber{
		socket:       socket,
		endpoint:     endpoint,
		logger:       logger.WithComponent("notify"),
		pollInterval: 250 * time.Millisecond,
		gaps:         NewSequenceTracker(),
	}

	for _, topic := range topics {
		if err := socket.SetSubscribe(topic); err != nil {
			_ = socket.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeZMQ, "zmq_subscribe", "failed to subscribe").
				WithContext("topic", topic)
		}
		s.logger.Info("Subscribed to ZMQ topic", "topic", topic)
	}

	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeZMQ, "zmq_connect", "failed to connect").
			WithContext("endpoint", endpoint)
	}
	s.logger.LogConnection("connected", endpoint)

	return s, nil
}

// Listen delivers notifications to handler until ctx is done.
func (s *Subscriber) Listen(ctx context.Context, handler Handler) error {
	poller := zmq.NewPoller()
	poller.Add(s.socket, zmq.POLLIN)

	s.logger.Info("Starting ZMQ listener", "endpoint", s.endpoint)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ZMQ listener stopping")
			return ctx.Err()
		default:
		}

		polled, err := poller.Poll(s.pollInterval)
		if err != nil {
			if zmq.AsErrno(err) == zmq.ETERM {
				return errors.Wrap(err, errors.ErrorTypeZMQ, "zmq_poll", "ZMQ context terminated")
			}
			s.logger.WithError(err).Warn("ZMQ poll failed")
			continue
		}
		if len(polled) == 0 {
			continue
		}

		parts, err := s.socket.RecvMessageBytes(zmq.DONTWAIT)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to receive ZMQ message")
			continue
		}

		n, err := Parse(parts, time.Now())
		if err != nil {
			s.logger.WithError(err).Warn("Dropping malformed ZMQ message", "parts", len(parts))
			continue
		}

		n.Missed = s.gaps.Observe(n.Topic, n.Sequence)
		if n.Missed > 0 {
			s.logger.Warn("Missed ZMQ notifications", "topic", n.Topic, "missed", n.Missed, "sequence", n.Sequence)
		}
		s.logger.LogNotification(n.Topic, n.Hash, n.Sequence)

		if err := handler(ctx, n); err != nil {
			s.logger.WithError(err).Error("Failed to handle notification", "topic", n.Topic, "hash", n.Hash)
		}
	}
}

// Close closes the socket. Call it after Listen has returned.
func (s *Subscriber) Close() error {
	if s.socket != nil {
		return s.socket.Close()
	}
	return nil
}

// Parse decodes a multipart notification: topic, body and an optional
// little-endian sequence number.
func Parse(parts [][]byte, now time.Time) (Notification, error) {
	if len(parts) < 2 || len(parts) > 3 {
		return Notification{}, errors.New(errors.ErrorTypeZMQ, "zmq_parse",
			fmt.Sprintf("expected 2 or 3 message parts, got %d", len(parts)))
	}

	n := Notification{
		Topic:      string(parts[0]),
		Body:       parts[1],
		ReceivedAt: now,
	}

	if len(parts) == 3 {
		if len(parts[2]) != 4 {
			return Notification{}, errors.New(errors.ErrorTypeZMQ, "zmq_parse", "sequence must be 4 bytes").
				WithContext("topic", n.Topic)
		}
		n.Sequence = binary.LittleEndian.Uint32(parts[2])
	}

	hash, err := bodyHash(n.Topic, n.Body)
	if err != nil {
		return Notification{}, err
	}
	n.Hash = hash
	return n, nil
}

// bodyHash returns the display-order hash a notification body names.
// The hash topics already publish display order.
func bodyHash(topic string, body []byte) (string, error) {
	switch topic {
	case TopicHashBlock, TopicHashTx:
		if len(body) != 32 {
			return "", errors.New(errors.ErrorTypeZMQ, "zmq_parse",
				fmt.Sprintf("invalid hash length: %d", len(body))).WithContext("topic", topic)
		}
		return hex.EncodeToString(body), nil

	case TopicRawBlock:
		var header wire.BlockHeader
		if err := header.Deserialize(bytes.NewReader(body)); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeZMQ, "zmq_parse", "invalid block header").
				WithContext("size", len(body))
		}
		return header.BlockHash().String(), nil

	case TopicRawTx:
		var tx wire.MsgTx
		if err := tx.Deserialize(bytes.NewReader(body)); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeZMQ, "zmq_parse", "invalid transaction").
				WithContext("size", len(body))
		}
		return tx.TxHash().String(), nil

	default:
		return "", errors.New(errors.ErrorTypeZMQ, "zmq_parse", "unknown topic").WithContext("topic", topic)
	}
}

// SequenceTracker counts skipped sequence numbers per topic.
type SequenceTracker struct {
	mu   sync.Mutex
	last map[string]uint32
}

// NewSequenceTracker creates an empty tracker.
func NewSequenceTracker() *SequenceTracker {
	return &SequenceTracker{last: make(map[string]uint32)}
}

// Observe records seq for topic and returns how many numbers were skipped
// since the previous one. The first number seen and a restart from zero
// report no gap.
func (t *SequenceTracker) Observe(topic string, seq uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.last[topic]
	t.last[topic] = seq
	if !seen || seq == 0 || seq <= prev {
		return 0
	}
	return seq - prev - 1
}
