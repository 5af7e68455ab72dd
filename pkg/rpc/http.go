package rpc

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/rpcclient"

	"github.com/bardlex/coinrpc/pkg/circuit"
	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/log"
	"github.com/bardlex/coinrpc/pkg/retry"
)

// HTTPOptions tune the HTTP transport. Nil fields take defaults.
type HTTPOptions struct {
	// Timeout bounds a single round trip; zero leaves it to the caller's context.
	Timeout time.Duration
	// DialCheck is how long a round trip may stall before the daemon's
	// port is probed; zero means 250ms. rpcclient retries refused
	// connections internally and never reports them early.
	DialCheck time.Duration
	Retry     *retry.Config
	Breaker   *circuit.Config
	Logger    *log.Logger
}

const defaultDialCheck = 250 * time.Millisecond

// HTTPTransport sends JSON-RPC 1.0 requests over HTTP POST with basic auth.
type HTTPTransport struct {
	client         *rpcclient.Client
	circuitBreaker *circuit.Breaker
	retryConfig    *retry.Config
	timeout        time.Duration
	host           string
	dialAddr       string
	dialCheck      time.Duration
	logger         *log.Logger
}

// NewHTTPTransport creates a transport for the daemon described by conn.
// No connection is made until the first request.
func NewHTTPTransport(conn ConnectionParameters, opts *HTTPOptions) (*HTTPTransport, error) {
	if opts == nil {
		opts = &HTTPOptions{}
	}

	host, useTLS, err := conn.Endpoint()
	if err != nil {
		return nil, err
	}

	connCfg := &rpcclient.ConnConfig{
		Host:         host,
		User:         conn.User,
		Pass:         conn.Password,
		HTTPPostMode: true,
		DisableTLS:   !useTLS,
	}

	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTransport, "rpc_client_creation",
			"failed to create daemon RPC client").
			WithContext("host", host)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent("rpc_http")

	cbConfig := opts.Breaker
	if cbConfig == nil {
		cbConfig = &circuit.Config{
			Name:            host,
			MaxFailures:     3,
			SuccessRequired: 2,
			Timeout:         10 * time.Second,
			ResetTimeout:    30 * time.Second,
		}
	}
	if cbConfig.OnStateChange == nil {
		cbConfig.OnStateChange = func(name string, from, to circuit.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		}
	}

	retryConfig := opts.Retry
	if retryConfig == nil {
		retryConfig = retry.TransportConfig()
	}

	dialCheck := opts.DialCheck
	if dialCheck <= 0 {
		dialCheck = defaultDialCheck
	}

	return &HTTPTransport{
		client:         client,
		circuitBreaker: circuit.New(cbConfig),
		retryConfig:    retryConfig,
		timeout:        opts.Timeout,
		host:           host,
		dialAddr:       dialAddress(host, useTLS),
		dialCheck:      dialCheck,
		logger:         logger,
	}, nil
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (json.RawMessage, error) {
	params, err := req.RawParams()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := circuit.ExecuteWithResult(ctx, t.circuitBreaker, func() (json.RawMessage, error) {
		return retry.DoWithResult(ctx, t.retryConfig, func() (json.RawMessage, error) {
			return t.roundTrip(ctx, req.Method, params)
		})
	})
	t.logger.LogCall(req.Method, len(params), time.Since(start), err)

	return raw, err
}

type outcome struct {
	raw json.RawMessage
	err error
}

func (t *HTTPTransport) roundTrip(ctx context.Context, method string, params []json.RawMessage) (json.RawMessage, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	future := t.client.RawRequestAsync(method, params)
	done := make(chan outcome, 1)
	go func() {
		raw, err := future.Receive()
		done <- outcome{raw: raw, err: err}
	}()

	stall := time.NewTimer(t.dialCheck)
	defer stall.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, abandoned(ctx, method)
		case res := <-done:
			if res.err != nil {
				return nil, classify(method, res.err)
			}
			if len(res.raw) == 0 {
				return json.RawMessage("null"), nil
			}
			return res.raw, nil
		case <-stall.C:
			if err := t.reachable(ctx); err != nil {
				if ctx.Err() != nil {
					return nil, abandoned(ctx, method)
				}
				return nil, errors.Wrap(err, errors.ErrorTypeTransport, method, "daemon unreachable").
					WithContext("host", t.host)
			}
			stall.Reset(t.dialCheck)
		}
	}
}

func abandoned(ctx context.Context, method string) error {
	return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, method, "request abandoned")
}

// reachable opens and closes a TCP connection to the daemon. The pending
// rpcclient request keeps running in the background when it fails.
func (t *HTTPTransport) reachable(ctx context.Context) error {
	dialer := net.Dialer{Timeout: 2 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", t.dialAddr)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

// dialAddress strips any wallet path from host and adds the scheme's
// default port when none is given.
func dialAddress(host string, useTLS bool) string {
	addr, _, _ := strings.Cut(host, "/")
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	port := "80"
	if useTLS {
		port = "443"
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), port)
}

func classify(method string, err error) error {
	var rpcErr *btcjson.RPCError
	if stderrors.As(err, &rpcErr) {
		return errors.NewProtocolError(method, rpcErr)
	}
	se := errors.Wrap(err, errors.ErrorTypeTransport, method, "daemon request failed")
	msg := err.Error()
	if strings.Contains(msg, "status code: 401") || strings.Contains(msg, "status code: 403") {
		// auth failures are final
		se.Retryable = false
		se = se.WithContext("auth", true)
	}
	return se
}

// GetStats returns the transport's circuit breaker statistics.
func (t *HTTPTransport) GetStats() circuit.Stats {
	return t.circuitBreaker.GetStats()
}

// Close shuts down the underlying client.
func (t *HTTPTransport) Close() {
	t.client.Shutdown()
}
