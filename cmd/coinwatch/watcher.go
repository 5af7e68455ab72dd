package main

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/bardlex/coinrpc/internal/messaging"
	"github.com/bardlex/coinrpc/internal/metrics"
	"github.com/bardlex/coinrpc/internal/notify"
	"github.com/bardlex/coinrpc/pkg/coin"
	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/log"
)

// EventPublisher hands encoded events to the broker
type EventPublisher interface {
	PublishJSON(ctx context.Context, topic, key string, data []byte) error
}

// SeenStore remembers which hashes were already relayed
type SeenStore interface {
	MarkSeen(ctx context.Context, kind, hash string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, kind, hash string) error
}

// Watcher turns daemon notifications into broker events
type Watcher struct {
	svc       *coin.Service
	publisher EventPublisher
	seen      SeenStore
	recorder  *metrics.Recorder
	logger    *log.Logger

	topics  map[string]string
	ttl     time.Duration
	coin    string
	network string
}

// WatcherConfig wires a Watcher. Seen and Recorder may be nil.
type WatcherConfig struct {
	Service   *coin.Service
	Publisher EventPublisher
	Seen      SeenStore
	Recorder  *metrics.Recorder
	Logger    *log.Logger

	// Topic maps an event kind to its broker topic.
	Topic    func(kind string) string
	DedupTTL time.Duration
}

// NewWatcher creates a watcher
func NewWatcher(cfg WatcherConfig) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}

	params := cfg.Service.Params()
	network := cfg.Service.Connection().Network.String()

	return &Watcher{
		svc:       cfg.Service,
		publisher: cfg.Publisher,
		seen:      cfg.Seen,
		recorder:  cfg.Recorder,
		logger:    logger.WithComponent("coinwatch").WithCoin(params.Name, network),
		topics: map[string]string{
			messaging.KindBlocks:       cfg.Topic(messaging.KindBlocks),
			messaging.KindTransactions: cfg.Topic(messaging.KindTransactions),
		},
		ttl:     cfg.DedupTTL,
		coin:    params.Name,
		network: network,
	}
}

// Handle relays one notification. It satisfies notify.Handler.
func (w *Watcher) Handle(ctx context.Context, n notify.Notification) error {
	kind := messaging.KindTransactions
	if n.IsBlock() {
		kind = messaging.KindBlocks
	}

	first := w.markSeen(ctx, kind, n.Hash)
	w.recorder.RecordNotification(n.Topic, n.Missed, !first)
	if !first {
		w.logger.Debug("Skipping duplicate notification", "topic", n.Topic, "hash", n.Hash)
		return nil
	}

	var (
		event any
		err   error
	)
	if kind == messaging.KindBlocks {
		event, err = w.blockEvent(ctx, n)
	} else {
		event, err = w.txEvent(ctx, n)
	}
	if err != nil {
		w.forget(ctx, kind, n.Hash)
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		w.forget(ctx, kind, n.Hash)
		return errors.Wrap(err, errors.ErrorTypeInternal, "event_marshal", "failed to encode event")
	}

	topic := w.topics[kind]
	err = w.publisher.PublishJSON(ctx, topic, n.Hash, data)
	w.recorder.RecordPublish(topic, len(data), err)
	if err != nil {
		w.forget(ctx, kind, n.Hash)
		return err
	}
	return nil
}

// markSeen reports whether hash is new. Without a store, or when the store
// fails, every notification counts as new.
func (w *Watcher) markSeen(ctx context.Context, kind, hash string) bool {
	if w.seen == nil {
		return true
	}
	first, err := w.seen.MarkSeen(ctx, kind, hash, w.ttl)
	if err != nil {
		w.logger.WithError(err).Warn("Dedup store unavailable, relaying anyway", "hash", hash)
		return true
	}
	return first
}

func (w *Watcher) forget(ctx context.Context, kind, hash string) {
	if w.seen == nil {
		return
	}
	if err := w.seen.Forget(ctx, kind, hash); err != nil {
		w.logger.WithError(err).Warn("Failed to drop dedup mark", "hash", hash)
	}
}

func (w *Watcher) blockEvent(ctx context.Context, n notify.Notification) (*messaging.BlockEvent, error) {
	event := &messaging.BlockEvent{
		Coin:       w.coin,
		Network:    w.network,
		Hash:       n.Hash,
		Sequence:   n.Sequence,
		ObservedAt: n.ReceivedAt.UTC(),
	}

	if n.Topic == notify.TopicRawBlock {
		var block wire.MsgBlock
		err := block.Deserialize(bytes.NewReader(n.Body))
		switch {
		case err != nil:
			// merged-mined blocks carry an auxpow header wire cannot decode
			w.logger.Debug("Raw block not decodable, asking the daemon", "hash", n.Hash)
		case merkleRoot(block.Transactions) != block.Header.MerkleRoot:
			w.logger.Warn("Raw block merkle root mismatch, asking the daemon", "hash", n.Hash)
		default:
			event.PreviousHash = block.Header.PrevBlock.String()
			event.Time = block.Header.Timestamp.UTC()
			event.TxCount = len(block.Transactions)
			event.Size = int32(len(n.Body))
			return event, nil
		}
	}

	block, err := w.svc.GetBlock(ctx, n.Hash, true)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, errors.New(errors.ErrorTypeProtocol, "getblock", "daemon returned no block").
			WithContext("hash", n.Hash)
	}
	info := block.Info
	event.Height = info.Height
	event.PreviousHash = info.PreviousHash
	event.Time = time.Unix(info.Time, 0).UTC()
	event.TxCount = len(info.Tx)
	event.Size = info.Size
	event.Difficulty = info.Difficulty
	return event, nil
}

func (w *Watcher) txEvent(ctx context.Context, n notify.Notification) (*messaging.TxEvent, error) {
	event := &messaging.TxEvent{
		Coin:       w.coin,
		Network:    w.network,
		TxID:       n.Hash,
		Sequence:   n.Sequence,
		ObservedAt: n.ReceivedAt.UTC(),
	}

	if n.Topic == notify.TopicRawTx {
		var tx wire.MsgTx
		if err := tx.Deserialize(bytes.NewReader(n.Body)); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeZMQ, "decode_rawtx",
				"failed to decode raw transaction").
				WithContext("txid", n.Hash)
		}
		fillFromWire(event, &tx)
		return event, nil
	}

	raw, err := w.svc.GetRawTransaction(ctx, n.Hash, coin.RawTxDecoded)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New(errors.ErrorTypeProtocol, "getrawtransaction", "daemon returned no transaction").
			WithContext("txid", n.Hash)
	}
	info := raw.Info
	event.Size = info.Size
	event.VSize = info.Vsize
	event.Inputs = len(info.Vin)
	event.Outputs = len(info.Vout)
	event.Coinbase = len(info.Vin) == 1 && info.Vin[0].IsCoinBase()
	for _, out := range info.Vout {
		amount, err := btcutil.NewAmount(out.Value)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeParse, "getrawtransaction",
				"invalid output value").
				WithContext("txid", n.Hash).
				WithContext("vout", out.N)
		}
		event.TotalOut += int64(amount)
	}
	return event, nil
}

func fillFromWire(event *messaging.TxEvent, tx *wire.MsgTx) {
	size := tx.SerializeSize()
	weight := tx.SerializeSizeStripped()*3 + size

	event.Size = int32(size)
	event.VSize = int32((weight + 3) / 4)
	event.Inputs = len(tx.TxIn)
	event.Outputs = len(tx.TxOut)
	for _, out := range tx.TxOut {
		event.TotalOut += out.Value
	}

	if len(tx.TxIn) == 1 {
		prev := tx.TxIn[0].PreviousOutPoint
		event.Coinbase = prev.Index == wire.MaxPrevOutIndex && prev.Hash == chainhash.Hash{}
	}
}
