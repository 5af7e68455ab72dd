// Package influx provides the InfluxDB connection used for coinwatch metrics.
package influx

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/log"
)

// Client wraps the non-blocking InfluxDB write API
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	bucket   string
	org      string
	done     chan struct{}
}

// Config holds InfluxDB connection configuration
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	// BatchSize and FlushInterval tune the write buffer; zero keeps the
	// client library defaults.
	BatchSize     uint
	FlushInterval time.Duration
}

// NewClient creates a new InfluxDB client and checks the server health.
// Asynchronous write failures are logged to logger.
func NewClient(cfg *Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}

	opts := influxdb2.DefaultOptions()
	if cfg.BatchSize > 0 {
		opts.SetBatchSize(cfg.BatchSize)
	}
	if cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := checkHealth(ctx, client); err != nil {
		client.Close()
		return nil, err.WithContext("url", cfg.URL)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
		org:      cfg.Org,
		done:     make(chan struct{}),
	}
	go c.drainErrors(logger.WithComponent("influx"))

	return c, nil
}

// WritePoint queues a point for the next batch
func (c *Client) WritePoint(p *write.Point) {
	c.writeAPI.WritePoint(p)
}

// Flush forces pending points to be written
func (c *Client) Flush() {
	c.writeAPI.Flush()
}

// Close flushes pending points and closes the InfluxDB connection
func (c *Client) Close() {
	c.writeAPI.Flush()
	close(c.done)
	c.client.Close()
}

// Health checks InfluxDB connectivity
func (c *Client) Health(ctx context.Context) error {
	if err := checkHealth(ctx, c.client); err != nil {
		return err
	}
	return nil
}

func (c *Client) drainErrors(logger *log.Logger) {
	errs := c.writeAPI.Errors()
	for {
		select {
		case err := <-errs:
			logger.Warn("Failed to write metrics batch",
				"bucket", c.bucket,
				"org", c.org,
				"error", err)
		case <-c.done:
			return
		}
	}
}

func checkHealth(ctx context.Context, client influxdb2.Client) *errors.ServiceError {
	health, err := client.Health(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeTransport, "influx_health",
			"failed to check InfluxDB health")
	}

	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return errors.New(errors.ErrorTypeTransport, "influx_health",
			fmt.Sprintf("InfluxDB health check failed: %s", msg))
	}

	return nil
}
