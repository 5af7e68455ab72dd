package rpc

import (
	"context"
	"encoding/json"
)

// Transport sends a request to the daemon and returns the raw result value.
//
// Implementations report daemon error objects as protocol errors carrying a
// *btcjson.RPCError and every network, auth or connectivity failure as a
// transport error. A JSON null result is returned as the literal null.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, req Request) (json.RawMessage, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req Request) (json.RawMessage, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// Middleware decorates a Transport.
type Middleware func(Transport) Transport

// Chain applies middlewares so that the first one is outermost.
func Chain(t Transport, mws ...Middleware) Transport {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}
