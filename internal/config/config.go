// Package config loads the settings of the coinrpc commands from environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bardlex/coinrpc/pkg/coin"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

// Config holds the settings shared by the coinrpc commands
type Config struct {
	// Service identification
	ServiceName string
	Version     string
	Environment string

	// Daemon connection
	Coin           string
	Network        string
	RPCURL         string
	RPCUser        string
	RPCPassword    string
	WalletPassword string
	RPCTimeout     time.Duration
	RPCRetries     int

	// Notifications
	ZMQAddr   string
	ZMQTopics []string

	// Kafka configuration
	KafkaBrokers     []string
	KafkaTopicPrefix string

	// Dedup store, disabled when RedisURL is empty
	RedisURL string
	DedupTTL time.Duration

	// Metrics, disabled when InfluxToken is empty
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		// Service defaults
		ServiceName: getEnv("SERVICE_NAME", "coinrpc"),
		Version:     getEnv("VERSION", "dev"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Daemon defaults, a blank URL selects the coin's local port
		Coin:           getEnv("COIN", "bitcoin"),
		Network:        getEnv("COIN_NETWORK", "main"),
		RPCURL:         getEnv("COIN_RPC_URL", ""),
		RPCUser:        getEnv("COIN_RPC_USER", ""),
		RPCPassword:    getEnv("COIN_RPC_PASSWORD", ""),
		WalletPassword: getEnv("COIN_WALLET_PASSWORD", ""),
		RPCTimeout:     getEnvDuration("COIN_RPC_TIMEOUT", 30*time.Second),
		RPCRetries:     getEnvInt("COIN_RPC_RETRIES", 3),

		// Notification defaults
		ZMQAddr:   getEnv("COIN_ZMQ_ADDR", "tcp://localhost:28332"),
		ZMQTopics: getEnvSlice("COIN_ZMQ_TOPICS", []string{"hashblock", "hashtx"}),

		// Kafka defaults
		KafkaBrokers:     getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "coin"),

		// Dedup defaults
		RedisURL: getEnv("REDIS_URL", ""),
		DedupTTL: getEnvDuration("DEDUP_TTL", 10*time.Minute),

		// Metrics defaults
		InfluxURL:    getEnv("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  getEnv("INFLUX_TOKEN", ""),
		InfluxOrg:    getEnv("INFLUX_ORG", "coinrpc"),
		InfluxBucket: getEnv("INFLUX_BUCKET", "rpc"),

		// Logging defaults
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate performs basic validation of configuration values
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("SERVICE_NAME cannot be empty")
	}

	if _, err := coin.Lookup(c.Coin); err != nil {
		return fmt.Errorf("COIN: %w", err)
	}

	if _, err := rpc.ParseNetwork(c.Network); err != nil {
		return fmt.Errorf("COIN_NETWORK: %w", err)
	}

	if c.RPCTimeout <= 0 {
		return fmt.Errorf("COIN_RPC_TIMEOUT must be positive")
	}

	if c.RPCRetries < 1 {
		return fmt.Errorf("COIN_RPC_RETRIES must be at least 1")
	}

	if c.DedupTTL <= 0 {
		return fmt.Errorf("DEDUP_TTL must be positive")
	}

	for _, topic := range c.ZMQTopics {
		switch topic {
		case "hashblock", "hashtx", "rawblock", "rawtx":
		default:
			return fmt.Errorf("COIN_ZMQ_TOPICS: unknown topic %q", topic)
		}
	}

	return nil
}

// CoinParams returns the parameters of the configured coin.
func (c *Config) CoinParams() coin.Params {
	p, _ := coin.Lookup(c.Coin)
	return p
}

// Connection returns the daemon connection parameters.
func (c *Config) Connection() rpc.ConnectionParameters {
	network, _ := rpc.ParseNetwork(c.Network)
	return c.CoinParams().Resolve(rpc.ConnectionParameters{
		URL:            c.RPCURL,
		User:           c.RPCUser,
		Password:       c.RPCPassword,
		Network:        network,
		WalletPassword: c.WalletPassword,
	})
}

// Topic returns the Kafka topic for an event kind, such as "blocks".
func (c *Config) Topic(kind string) string {
	return c.KafkaTopicPrefix + "." + kind
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
