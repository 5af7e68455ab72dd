package coin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/log"
	"github.com/bardlex/coinrpc/pkg/mapper"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

// Service exposes the daemon API of one coin. It holds no mutable state, so
// one Service may be shared by any number of goroutines as long as its
// transport allows that.
type Service struct {
	params    Params
	conn      rpc.ConnectionParameters
	transport rpc.Transport
	logger    *log.Logger
}

// New creates a Service that sends every call through transport.
//
// Parameters:
//   - params: Per-coin constants, such as Bitcoin() or Dogecoin()
//   - conn: Daemon connection values; a blank URL takes the coin's default
//   - transport: Where requests go, usually an *rpc.HTTPTransport
//   - logger: Structured logger, may be nil
//
// Returns:
//   - *Service: Service ready for use
//   - error: Usage error when transport is missing
func New(params Params, conn rpc.ConnectionParameters, transport rpc.Transport, logger *log.Logger) (*Service, error) {
	if transport == nil {
		return nil, errors.NewUsageError("new_service", "transport is required")
	}
	if logger == nil {
		logger = log.Discard()
	}
	if err := registerNets(); err != nil {
		logger.WithError(err).Warn("Address prefixes for a network could not be registered")
	}

	conn = params.Resolve(conn)
	return &Service{
		params:    params,
		conn:      conn,
		transport: transport,
		logger:    logger.WithComponent("coin").WithCoin(params.Name, conn.Network.String()),
	}, nil
}

// Dial creates a Service over a new HTTP transport. mws wrap the transport,
// outermost first. The returned transport must be closed by the caller.
func Dial(params Params, conn rpc.ConnectionParameters, opts *rpc.HTTPOptions, mws ...rpc.Middleware) (*Service, *rpc.HTTPTransport, error) {
	conn = params.Resolve(conn)

	var logger *log.Logger
	if opts != nil {
		logger = opts.Logger
	}

	transport, err := rpc.NewHTTPTransport(conn, opts)
	if err != nil {
		return nil, nil, err
	}

	svc, err := New(params, conn, rpc.Chain(transport, mws...), logger)
	if err != nil {
		transport.Close()
		return nil, nil, err
	}
	return svc, transport, nil
}

// Params returns the coin constants.
func (s *Service) Params() Params {
	return s.params
}

// Connection returns the resolved connection parameters.
func (s *Service) Connection() rpc.ConnectionParameters {
	return s.conn
}

func (s *Service) String() string {
	return fmt.Sprintf("%s %s", s.params.LongName, s.conn)
}

// UnlockWallet unlocks the wallet for timeout using the configured wallet
// password.
func (s *Service) UnlockWallet(ctx context.Context, timeout time.Duration) error {
	if s.conn.WalletPassword == "" {
		return errors.NewUsageError("walletpassphrase", "no wallet password configured")
	}
	return s.WalletPassphrase(ctx, s.conn.WalletPassword, int(timeout/time.Second))
}

// Raw sends method with params as given and returns the result text
// unchanged.
func (s *Service) Raw(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	req, err := rpc.NewVariadicRequest(method, nil, params)
	if err != nil {
		return nil, err
	}
	return s.transport.Send(ctx, req)
}

// call builds the request, sends it and maps the result.
func call[T any](ctx context.Context, s *Service, conv mapper.Func[T], method string, params ...rpc.Param) (T, error) {
	req, err := rpc.NewRequest(method, params...)
	if err != nil {
		var zero T
		return zero, err
	}
	return send(ctx, s, conv, req)
}

func send[T any](ctx context.Context, s *Service, conv mapper.Func[T], req rpc.Request) (T, error) {
	var zero T

	raw, err := s.transport.Send(ctx, req)
	if err != nil {
		return zero, err
	}

	v, err := conv(req.Method, raw)
	if err != nil {
		s.logger.WithContext(ctx).WithMethod(req.Method).WithError(err).Warn("Failed to map daemon result")
		return zero, err
	}
	return v, nil
}

// exec sends a call whose reply carries no data.
func exec(ctx context.Context, s *Service, method string, params ...rpc.Param) error {
	_, err := call(ctx, s, mapper.Discard, method, params...)
	return err
}

// orWildcard replaces a blank account or block hash with the wildcard.
func orWildcard(s string) string {
	if strings.TrimSpace(s) == "" {
		return Wildcard
	}
	return s
}

// comments returns the comment pair of the send calls. A blank comment is
// only sent when a recipient comment follows it.
func comments(comment, commentTo string) (rpc.Param, rpc.Param) {
	to := rpc.OptString(commentTo)
	if to.IsSet() {
		return rpc.Value(comment), to
	}
	return rpc.OptString(comment), to
}
