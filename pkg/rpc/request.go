// Package rpc builds JSON-RPC requests for Bitcoin-like daemons and defines
// the transport contract used to send them.
package rpc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bardlex/coinrpc/pkg/errors"
)

// Request is a method name with its positional parameters. Params only holds
// the supplied prefix of the caller's arguments.
type Request struct {
	Method string
	Params []any
}

// Param is a positional argument that is either supplied or unset.
// The zero value is unset.
type Param struct {
	value    any
	supplied bool
}

// Value returns a supplied parameter. Value(nil) is sent as an explicit JSON null.
func Value(v any) Param {
	return Param{value: v, supplied: true}
}

// Unset returns a parameter that is not sent.
func Unset() Param {
	return Param{}
}

// Opt returns a supplied parameter holding *v, or an unset one when v is nil.
func Opt[T any](v *T) Param {
	if v == nil {
		return Unset()
	}
	return Value(*v)
}

// OptString returns an unset parameter for a blank string.
func OptString(s string) Param {
	if strings.TrimSpace(s) == "" {
		return Unset()
	}
	return Value(s)
}

// IsSet reports whether the parameter is sent on the wire.
func (p Param) IsSet() bool {
	return p.supplied
}

// NewRequest builds a request from positional parameters. Trailing unset
// parameters are dropped because daemons pick the call variant by argument
// count. An unset parameter followed by a supplied one cannot be expressed
// positionally and is rejected; callers pass an explicit sentinel instead.
func NewRequest(method string, params ...Param) (Request, error) {
	if strings.TrimSpace(method) == "" {
		return Request{}, errors.NewUsageError("build_request", "method is required")
	}

	last := -1
	for i, p := range params {
		if p.supplied {
			last = i
		}
	}

	out := make([]any, 0, last+1)
	for i := 0; i <= last; i++ {
		if !params[i].supplied {
			return Request{}, errors.NewUsageError(method,
				fmt.Sprintf("parameter %d is unset but parameter %d is supplied", i, last)).
				WithContext("position", i)
		}
		out = append(out, params[i].value)
	}

	return Request{Method: method, Params: out}, nil
}

// NewVariadicRequest builds a request from fixed parameters followed by rest,
// which is appended verbatim when non-empty. Any unset fixed parameter is
// rejected once rest is non-empty.
func NewVariadicRequest(method string, fixed []Param, rest []any) (Request, error) {
	params := fixed
	if len(rest) > 0 {
		params = make([]Param, 0, len(fixed)+len(rest))
		params = append(params, fixed...)
		for _, v := range rest {
			params = append(params, Value(v))
		}
	}
	return NewRequest(method, params...)
}

// RawParams encodes every parameter as JSON in order.
func (r Request) RawParams() ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, len(r.Params))
	for i, p := range r.Params {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeUsage, r.Method, "cannot encode parameter").
				WithContext("position", i)
		}
		raw[i] = b
	}
	return raw, nil
}

// String renders the request the way it appears on the wire.
func (r Request) String() string {
	b, err := json.Marshal(struct {
		Method string `json:"method"`
		Params []any  `json:"params"`
	}{r.Method, r.Params})
	if err != nil {
		return r.Method
	}
	return string(b)
}
