// Package mapper converts raw JSON-RPC result values into typed Go values.
//
// Every conversion is all or nothing: a value that does not match its
// declared type, or a keyed object carrying a property outside its field
// table, fails the conversion and no partial value is returned.
package mapper

import (
	"bytes"
	"encoding/json"
	stderrors "errors"

	"github.com/bardlex/coinrpc/pkg/errors"
)

// Func converts a raw result value for operation op into T.
type Func[T any] func(op string, raw json.RawMessage) (T, error)

// Map converts the output of f with conv.
func Map[A, B any](f Func[A], conv func(A) B) Func[B] {
	return func(op string, raw json.RawMessage) (B, error) {
		a, err := f(op, raw)
		if err != nil {
			var zero B
			return zero, err
		}
		return conv(a), nil
	}
}

// Gate picks terse or detailed from the verbosity the caller requested,
// before the raw value is looked at. A scalar reply is valid for a terse
// request and a parse failure for a detailed one.
func Gate[T any](verbose bool, terse, detailed Func[T]) Func[T] {
	if verbose {
		return detailed
	}
	return terse
}

// Discard accepts any result, for methods whose reply carries no data.
func Discard(string, json.RawMessage) (struct{}, error) {
	return struct{}{}, nil
}

// Decode unmarshals raw into a T value.
func Decode[T any](op string, raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, errors.NewParseError(op, "result", raw, err)
	}
	return v, nil
}

// Object unmarshals raw into a new T. A null result yields nil.
func Object[T any](op string, raw json.RawMessage) (*T, error) {
	if isNull(raw) {
		return nil, nil
	}
	v, err := Decode[T](op, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// fieldError relabels a scalar parse failure with the name of the field that
// held the value. Errors of other types pass through.
func fieldError(op, field string, raw json.RawMessage, err error) error {
	if !errors.IsType(err, errors.ErrorTypeParse) {
		return err
	}
	return errors.NewParseError(op, field, raw, stderrors.Unwrap(err))
}
