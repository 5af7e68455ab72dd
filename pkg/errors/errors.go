// Package errors provides the error taxonomy shared by the coinrpc packages.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcjson"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeTransport represents network, auth or connectivity failures
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeProtocol represents an error object returned by the daemon
	ErrorTypeProtocol ErrorType = "protocol"
	// ErrorTypeParse represents a value that did not match its declared type
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeUnknownField represents a property outside the known schema
	ErrorTypeUnknownField ErrorType = "unknown_field"
	// ErrorTypeUsage represents an invalid argument combination from the caller
	ErrorTypeUsage ErrorType = "usage"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeKafka represents Kafka messaging errors
	ErrorTypeKafka ErrorType = "kafka"
	// ErrorTypeRedis represents Redis errors
	ErrorTypeRedis ErrorType = "redis"
	// ErrorTypeZMQ represents ZMQ notification errors
	ErrorTypeZMQ ErrorType = "zmq"
	// ErrorTypeInternal represents internal/unknown errors
	ErrorTypeInternal ErrorType = "internal"
)

// ServiceError represents a structured error with context
type ServiceError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
	Context   map[string]any
	Timestamp time.Time
	Retryable bool
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s operation '%s' failed: %s (caused by: %v)", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s operation '%s' failed: %s", e.Type, e.Operation, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether this error should be retried
func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}

// WithContext adds additional context to the error
func (e *ServiceError) WithContext(key string, value any) *ServiceError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a new ServiceError
func New(errorType ErrorType, operation, message string) *ServiceError {
	return &ServiceError{
		Type:      errorType,
		Operation: operation,
		Message:   message,
		Timestamp: time.Now(),
		Retryable: isRetryableByType(errorType),
	}
}

// Wrap wraps an existing error with context. The retry decision of a wrapped
// ServiceError is preserved; a daemon RPC error is never retryable.
func Wrap(err error, errorType ErrorType, operation, message string) *ServiceError {
	if err == nil {
		return nil
	}

	if se, ok := err.(*ServiceError); ok {
		return &ServiceError{
			Type:      errorType,
			Operation: operation,
			Message:   message,
			Cause:     se,
			Timestamp: time.Now(),
			Retryable: se.Retryable,
		}
	}

	retryable := isRetryableByDefault(err)
	if errorType == ErrorTypeTransport && !isContextError(err) && !isRPCError(err) {
		retryable = true
	}

	return &ServiceError{
		Type:      errorType,
		Operation: operation,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now(),
		Retryable: retryable,
	}
}

// NewParseError reports a raw value that could not be converted to its
// declared type.
func NewParseError(operation, field string, raw []byte, cause error) *ServiceError {
	msg := fmt.Sprintf("cannot parse %s", field)
	var se *ServiceError
	if cause != nil {
		se = Wrap(cause, ErrorTypeParse, operation, msg)
	} else {
		se = New(ErrorTypeParse, operation, msg)
	}
	se.Retryable = false
	return se.WithContext("field", field).WithContext("raw", truncate(string(raw), 64))
}

// NewUnknownFieldError reports a property name outside the known schema of a
// keyed response.
func NewUnknownFieldError(operation, key, property string) *ServiceError {
	return New(ErrorTypeUnknownField, operation,
		fmt.Sprintf("unknown property %q for entry %q", property, key)).
		WithContext("key", key).
		WithContext("property", property)
}

// NewUsageError reports invalid caller input detected before any network call.
func NewUsageError(operation, message string) *ServiceError {
	return New(ErrorTypeUsage, operation, message)
}

// NewProtocolError wraps an error object returned by the daemon.
func NewProtocolError(operation string, rpcErr *btcjson.RPCError) *ServiceError {
	return Wrap(rpcErr, ErrorTypeProtocol, operation, "daemon returned an error").
		WithContext("code", int(rpcErr.Code))
}

// isRetryableByType determines if an error type is generally retryable
func isRetryableByType(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport, ErrorTypeTimeout, ErrorTypeKafka, ErrorTypeRedis:
		return true
	default:
		return false
	}
}

// isRetryableByDefault checks if an error is retryable based on common patterns
func isRetryableByDefault(err error) bool {
	if err == nil {
		return false
	}

	if isContextError(err) || isRPCError(err) {
		return false
	}

	errStr := strings.ToLower(err.Error())

	networkErrors := []string{
		"connection refused",
		"connection reset",
		"network unreachable",
		"timeout",
		"temporary failure",
		"too many connections",
		"eof",
	}

	for _, netErr := range networkErrors {
		if strings.Contains(errStr, netErr) {
			return true
		}
	}

	return false
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func isRPCError(err error) bool {
	var rpcErr *btcjson.RPCError
	return errors.As(err, &rpcErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsType checks if err, or any ServiceError it wraps, is of a specific type
func IsType(err error, errorType ErrorType) bool {
	for err != nil {
		var se *ServiceError
		if !errors.As(err, &se) {
			return false
		}
		if se.Type == errorType {
			return true
		}
		err = se.Cause
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.IsRetryable()
	}
	return isRetryableByDefault(err)
}

// GetContext retrieves context from a ServiceError
func GetContext(err error) map[string]any {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Context
	}
	return nil
}

// RPCCode returns the daemon error code carried by err, if any.
func RPCCode(err error) (btcjson.RPCErrorCode, bool) {
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code, true
	}
	return 0, false
}
