package circuit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcjson"

	rpcErrors "github.com/bardlex/coinrpc/pkg/errors"
)

func transportErr() error {
	return rpcErrors.Wrap(errors.New("connection refused"), rpcErrors.ErrorTypeTransport, "ping", "request failed")
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxFailures != 5 {
		t.Errorf("Expected MaxFailures = 5, got %d", config.MaxFailures)
	}
	if config.SuccessRequired != 3 {
		t.Errorf("Expected SuccessRequired = 3, got %d", config.SuccessRequired)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Expected Timeout = 30s, got %v", config.Timeout)
	}
	if config.ResetTimeout != 60*time.Second {
		t.Errorf("Expected ResetTimeout = 60s, got %v", config.ResetTimeout)
	}
}

func TestNew_NilConfig(t *testing.T) {
	breaker := New(nil)

	if breaker.config == nil {
		t.Error("Expected default config when nil is passed")
	}
	if breaker.GetState() != StateClosed {
		t.Error("Expected initial state to be Closed")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBreaker_Execute_OpenCircuit(t *testing.T) {
	breaker := New(&Config{
		Name:            "bitcoin",
		MaxFailures:     2,
		SuccessRequired: 1,
		Timeout:         10 * time.Second,
		ResetTimeout:    30 * time.Second,
	})

	ctx := context.Background()
	callCount := 0
	failingFn := func() error {
		callCount++
		return transportErr()
	}

	for i := 0; i < 2; i++ {
		if err := breaker.Execute(ctx, failingFn); err == nil {
			t.Error("Expected error")
		}
	}

	if breaker.GetState() != StateOpen {
		t.Errorf("Expected state to be Open, got %s", breaker.GetState())
	}

	err := breaker.Execute(ctx, failingFn)
	if err == nil {
		t.Fatal("Expected circuit breaker to reject call")
	}
	if !rpcErrors.IsType(err, rpcErrors.ErrorTypeTransport) {
		t.Error("Expected circuit breaker error to be transport type")
	}
	if rpcErrors.IsRetryable(err) {
		t.Error("Expected rejection to not be retryable")
	}
	if rpcErrors.GetContext(err)["breaker"] != "bitcoin" {
		t.Errorf("Expected breaker name in context, got %v", rpcErrors.GetContext(err))
	}
	if callCount != 2 {
		t.Error("Expected function not to be called when circuit is open")
	}
}

func TestBreaker_DaemonErrorsDoNotTrip(t *testing.T) {
	breaker := New(&Config{
		MaxFailures:     1,
		SuccessRequired: 1,
		Timeout:         10 * time.Second,
		ResetTimeout:    30 * time.Second,
	})

	ctx := context.Background()
	answers := []error{
		rpcErrors.NewProtocolError("getblock", btcjson.NewRPCError(btcjson.ErrRPCBlockNotFound, "Block not found")),
		rpcErrors.NewParseError("getblockcount", "result", []byte(`"x"`), nil),
		rpcErrors.NewUsageError("getrawtransaction", "bad verbosity"),
		errors.New("unknown error"),
	}

	for _, answer := range answers {
		_ = breaker.Execute(ctx, func() error { return answer })
	}

	if breaker.GetState() != StateClosed {
		t.Errorf("Expected state to remain Closed, got %s", breaker.GetState())
	}
	if stats := breaker.GetStats(); stats.Failures != 0 {
		t.Errorf("Expected 0 failures, got %d", stats.Failures)
	}
}

func TestBreaker_CustomIsFailure(t *testing.T) {
	breaker := New(&Config{
		MaxFailures:     1,
		SuccessRequired: 1,
		Timeout:         10 * time.Second,
		ResetTimeout:    30 * time.Second,
		IsFailure:       func(error) bool { return true },
	})

	_ = breaker.Execute(context.Background(), func() error { return errors.New("anything") })

	if breaker.GetState() != StateOpen {
		t.Errorf("Expected state to be Open, got %s", breaker.GetState())
	}
}

func TestBreaker_Execute_HalfOpen(t *testing.T) {
	breaker := New(&Config{
		MaxFailures:     2,
		SuccessRequired: 1,
		Timeout:         time.Millisecond,
		ResetTimeout:    30 * time.Second,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_ = breaker.Execute(ctx, transportErr)
	}
	if breaker.GetState() != StateOpen {
		t.Fatal("Expected circuit to be open")
	}

	time.Sleep(2 * time.Millisecond)

	callCount := 0
	err := breaker.Execute(ctx, func() error {
		callCount++
		return nil
	})
	if err != nil {
		t.Errorf("Expected success in half-open state, got: %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if breaker.GetState() != StateClosed {
		t.Errorf("Expected circuit to close after success, got %s", breaker.GetState())
	}
}

func TestBreaker_Execute_HalfOpenFailure(t *testing.T) {
	breaker := New(&Config{
		MaxFailures:     2,
		SuccessRequired: 1,
		Timeout:         time.Millisecond,
		ResetTimeout:    30 * time.Second,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_ = breaker.Execute(ctx, transportErr)
	}

	time.Sleep(2 * time.Millisecond)

	if err := breaker.Execute(ctx, transportErr); err == nil {
		t.Error("Expected error")
	}
	if breaker.GetState() != StateOpen {
		t.Errorf("Expected circuit to reopen after failure, got %s", breaker.GetState())
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	breaker := New(&Config{
		Name:            "litecoin",
		MaxFailures:     1,
		SuccessRequired: 1,
		Timeout:         time.Millisecond,
		ResetTimeout:    30 * time.Second,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			if name != "litecoin" {
				t.Errorf("Expected name litecoin, got %s", name)
			}
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	ctx := context.Background()
	_ = breaker.Execute(ctx, transportErr)
	time.Sleep(2 * time.Millisecond)
	_ = breaker.Execute(ctx, func() error { return nil })

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != len(want) {
		t.Fatalf("Expected transitions %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestExecuteWithResult_Success(t *testing.T) {
	breaker := New(DefaultConfig())

	result, err := ExecuteWithResult(context.Background(), breaker, func() (string, error) {
		return "success", nil
	})
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected result 'success', got '%s'", result)
	}
}

func TestExecuteWithResult_CircuitOpen(t *testing.T) {
	breaker := New(&Config{
		MaxFailures:     1,
		SuccessRequired: 1,
		Timeout:         10 * time.Second,
		ResetTimeout:    30 * time.Second,
	})

	ctx := context.Background()
	_, _ = ExecuteWithResult(ctx, breaker, func() (string, error) {
		return "", transportErr()
	})

	result, err := ExecuteWithResult(ctx, breaker, func() (string, error) {
		return "should not execute", nil
	})
	if err == nil {
		t.Error("Expected circuit breaker to reject call")
	}
	if result != "" {
		t.Errorf("Expected empty result when circuit is open, got '%s'", result)
	}
}

func TestBreaker_GetStats(t *testing.T) {
	breaker := New(&Config{
		MaxFailures:     3,
		SuccessRequired: 2,
		Timeout:         10 * time.Second,
		ResetTimeout:    30 * time.Second,
	})

	ctx := context.Background()
	_ = breaker.Execute(ctx, func() error { return nil })
	_ = breaker.Execute(ctx, transportErr)

	stats := breaker.GetStats()
	if stats.State != StateClosed {
		t.Errorf("Expected state Closed, got %s", stats.State)
	}
	if stats.Failures != 1 {
		t.Errorf("Expected 1 failure, got %d", stats.Failures)
	}
	if stats.Successes != 1 {
		t.Errorf("Expected 1 success, got %d", stats.Successes)
	}
	if stats.LastFailTime.IsZero() {
		t.Error("Expected LastFailTime to be set")
	}
}

func TestBreaker_Reset(t *testing.T) {
	breaker := New(&Config{
		MaxFailures:     1,
		SuccessRequired: 1,
		Timeout:         10 * time.Second,
		ResetTimeout:    30 * time.Second,
	})

	_ = breaker.Execute(context.Background(), transportErr)
	if breaker.GetState() != StateOpen {
		t.Fatal("Expected circuit to be open")
	}

	breaker.Reset()

	if breaker.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed after reset, got %s", breaker.GetState())
	}
	stats := breaker.GetStats()
	if stats.Failures != 0 || stats.Successes != 0 {
		t.Errorf("Expected counters reset, got %+v", stats)
	}
}

func TestBreaker_SuccessRequiredInHalfOpen(t *testing.T) {
	breaker := New(&Config{
		MaxFailures:     2,
		SuccessRequired: 3,
		Timeout:         time.Millisecond,
		ResetTimeout:    30 * time.Second,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_ = breaker.Execute(ctx, transportErr)
	}

	time.Sleep(2 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if err := breaker.Execute(ctx, func() error { return nil }); err != nil {
			t.Errorf("Expected success in half-open, got: %v", err)
		}
	}
	if breaker.GetState() != StateHalfOpen {
		t.Errorf("Expected state to be HalfOpen, got %s", breaker.GetState())
	}

	if err := breaker.Execute(ctx, func() error { return nil }); err != nil {
		t.Errorf("Expected success, got: %v", err)
	}
	if breaker.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed after required successes, got %s", breaker.GetState())
	}
}

func TestBreaker_ResetTimeout(t *testing.T) {
	breaker := New(&Config{
		MaxFailures:     2,
		SuccessRequired: 1,
		Timeout:         10 * time.Second,
		ResetTimeout:    time.Millisecond,
	})

	ctx := context.Background()
	_ = breaker.Execute(ctx, transportErr)

	time.Sleep(2 * time.Millisecond)

	if err := breaker.Execute(ctx, func() error { return nil }); err != nil {
		t.Errorf("Expected success, got: %v", err)
	}
	if stats := breaker.GetStats(); stats.Failures != 0 {
		t.Errorf("Expected failures to be reset after timeout, got %d", stats.Failures)
	}
}
