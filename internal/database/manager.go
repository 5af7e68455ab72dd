// Package database opens the optional stores coinwatch runs with: Redis for
// notification dedup and InfluxDB for metrics.
package database

import (
	"context"
	"fmt"

	"github.com/bardlex/coinrpc/internal/database/influx"
	"github.com/bardlex/coinrpc/internal/database/redis"
	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/log"
)

// Manager holds the stores that were configured. Either field may be nil.
type Manager struct {
	Redis  *redis.Client
	Influx *influx.Client
}

// Config holds configuration for every store. A blank RedisURL or a nil
// Influx config leaves that store disabled.
type Config struct {
	RedisURL       string
	RedisKeyPrefix string
	Influx         *influx.Config
}

// NewManager connects to every configured store. On failure the stores
// opened so far are closed again.
func NewManager(cfg *Config, logger *log.Logger) (*Manager, error) {
	m := &Manager{}

	if cfg.RedisURL != "" {
		client, err := redis.NewFromURL(cfg.RedisURL, cfg.RedisKeyPrefix)
		if err != nil {
			return nil, err
		}
		m.Redis = client
	}

	if cfg.Influx != nil {
		client, err := influx.NewClient(cfg.Influx, logger)
		if err != nil {
			if closeErr := m.Close(); closeErr != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeTransport, "influx_connection",
					"failed to connect to InfluxDB").
					WithContext("cleanup_error", closeErr.Error())
			}
			return nil, errors.Wrap(err, errors.ErrorTypeTransport, "influx_connection",
				"failed to connect to InfluxDB")
		}
		m.Influx = client
	}

	return m, nil
}

// Close closes every open store
func (m *Manager) Close() error {
	var errs []error

	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if m.Influx != nil {
		m.Influx.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("database close errors: %v", errs)
	}
	return nil
}

// Health checks every open store
func (m *Manager) Health(ctx context.Context) error {
	if m.Redis != nil {
		if err := m.Redis.Health(ctx); err != nil {
			return fmt.Errorf("redis health check failed: %w", err)
		}
	}

	if m.Influx != nil {
		if err := m.Influx.Health(ctx); err != nil {
			return fmt.Errorf("InfluxDB health check failed: %w", err)
		}
	}

	return nil
}
