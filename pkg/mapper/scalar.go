package mapper

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"math"
	"strconv"

	"github.com/bardlex/coinrpc/pkg/errors"
)

var errNotFinite = stderrors.New("number is not finite")

type signed interface {
	~int | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint16 | ~uint32 | ~uint64
}

// String maps a JSON string.
func String(op string, raw json.RawMessage) (string, error) {
	var s string
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", errors.NewParseError(op, "result", raw, nil)
	}
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", errors.NewParseError(op, "result", raw, err)
	}
	return s, nil
}

// Bool maps a JSON boolean or the quoted literals "true" and "false".
func Bool(op string, raw json.RawMessage) (bool, error) {
	switch numberText(raw) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, errors.NewParseError(op, "result", raw, nil)
	}
}

// Int maps an integer that fits in an int.
func Int(op string, raw json.RawMessage) (int, error) { return parseSigned[int](op, raw, strconv.IntSize) }

// Int16 maps an integer that fits in an int16.
func Int16(op string, raw json.RawMessage) (int16, error) { return parseSigned[int16](op, raw, 16) }

// Int32 maps an integer that fits in an int32.
func Int32(op string, raw json.RawMessage) (int32, error) { return parseSigned[int32](op, raw, 32) }

// Int64 maps an integer that fits in an int64.
func Int64(op string, raw json.RawMessage) (int64, error) { return parseSigned[int64](op, raw, 64) }

// Uint16 maps a non-negative integer that fits in a uint16.
func Uint16(op string, raw json.RawMessage) (uint16, error) { return parseUnsigned[uint16](op, raw, 16) }

// Uint32 maps a non-negative integer that fits in a uint32.
func Uint32(op string, raw json.RawMessage) (uint32, error) { return parseUnsigned[uint32](op, raw, 32) }

// Uint64 maps a non-negative integer that fits in a uint64.
func Uint64(op string, raw json.RawMessage) (uint64, error) { return parseUnsigned[uint64](op, raw, 64) }

// Float64 maps a finite JSON number.
func Float64(op string, raw json.RawMessage) (float64, error) {
	f, err := strconv.ParseFloat(numberText(raw), 64)
	if err != nil {
		return 0, errors.NewParseError(op, "result", raw, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.NewParseError(op, "result", raw, errNotFinite)
	}
	return f, nil
}

func parseSigned[T signed](op string, raw json.RawMessage, bits int) (T, error) {
	n, err := strconv.ParseInt(numberText(raw), 10, bits)
	if err != nil {
		return 0, errors.NewParseError(op, "result", raw, err)
	}
	return T(n), nil
}

func parseUnsigned[T unsigned](op string, raw json.RawMessage, bits int) (T, error) {
	n, err := strconv.ParseUint(numberText(raw), 10, bits)
	if err != nil {
		return 0, errors.NewParseError(op, "result", raw, err)
	}
	return T(n), nil
}

// numberText returns the literal text of a number, unquoting a JSON string
// that holds one. Anything that is neither is returned as is and fails to
// parse downstream.
func numberText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) >= 2 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
