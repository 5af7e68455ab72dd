// Package main implements coinwatch, which relays daemon ZMQ notifications
// as enriched JSON events to Kafka.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bardlex/coinrpc/internal/config"
	"github.com/bardlex/coinrpc/internal/database"
	"github.com/bardlex/coinrpc/internal/database/influx"
	"github.com/bardlex/coinrpc/internal/messaging"
	"github.com/bardlex/coinrpc/internal/metrics"
	"github.com/bardlex/coinrpc/internal/notify"
	"github.com/bardlex/coinrpc/pkg/coin"
	"github.com/bardlex/coinrpc/pkg/log"
	"github.com/bardlex/coinrpc/pkg/retry"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.ServiceName, cfg.Version, cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("coinwatch failed")
		os.Exit(1)
	}
	logger.Info("coinwatch stopped")
}

func run(cfg *config.Config, logger *log.Logger) error {
	conn := cfg.Connection()
	params := cfg.CoinParams()

	logger.Info("starting coinwatch",
		"version", cfg.Version,
		"coin", params.Name,
		"network", conn.Network.String(),
		"rpc_url", conn.URL,
		"zmq_addr", cfg.ZMQAddr,
	)

	stores, err := database.NewManager(storeConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.WithError(err).Warn("failed to close stores")
		}
	}()

	var points metrics.PointWriter
	if stores.Influx != nil {
		points = stores.Influx
	}
	recorder := metrics.NewRecorder(points, params.Name, conn.Network.String())

	svc, transport, err := coin.Dial(params, conn, rpcOptions(cfg, logger), recorder.Middleware())
	if err != nil {
		return err
	}
	defer transport.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.RPCTimeout)
	height, err := svc.GetBlockCount(pingCtx)
	pingCancel()
	if err != nil {
		return err
	}
	logger.Info("connected to daemon", "daemon", svc.String(), "height", height)

	publisher := messaging.NewPublisher(cfg.KafkaBrokers, logger, nil)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.WithError(err).Warn("failed to close publisher")
		}
	}()

	watcher := NewWatcher(WatcherConfig{
		Service:   svc,
		Publisher: publisher,
		Seen:      seenStore(stores),
		Recorder:  recorder,
		Logger:    logger,
		Topic:     cfg.Topic,
		DedupTTL:  cfg.DedupTTL,
	})

	subscriber, err := notify.NewSubscriber(cfg.ZMQAddr, cfg.ZMQTopics, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- subscriber.Listen(ctx, watcher.Handle)
	}()

	err = <-listenErr
	if ctx.Err() != nil {
		logger.Info("shutdown signal received")
		err = nil
	}

	if closeErr := subscriber.Close(); closeErr != nil {
		logger.WithError(closeErr).Warn("failed to close ZMQ subscriber")
	}
	return err
}

func storeConfig(cfg *config.Config) *database.Config {
	sc := &database.Config{
		RedisURL:       cfg.RedisURL,
		RedisKeyPrefix: cfg.CoinParams().Name + ":" + cfg.Connection().Network.String(),
	}
	if cfg.InfluxToken != "" {
		sc.Influx = &influx.Config{
			URL:           cfg.InfluxURL,
			Token:         cfg.InfluxToken,
			Org:           cfg.InfluxOrg,
			Bucket:        cfg.InfluxBucket,
			FlushInterval: 5 * time.Second,
		}
	}
	return sc
}

func rpcOptions(cfg *config.Config, logger *log.Logger) *rpc.HTTPOptions {
	retryConfig := retry.TransportConfig()
	retryConfig.MaxAttempts = cfg.RPCRetries

	return &rpc.HTTPOptions{
		Timeout: cfg.RPCTimeout,
		Retry:   retryConfig,
		Logger:  logger,
	}
}

// seenStore avoids handing the watcher a typed nil when Redis is disabled.
func seenStore(stores *database.Manager) SeenStore {
	if stores.Redis == nil {
		return nil
	}
	return stores.Redis
}
