package coin

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/bardlex/coinrpc/pkg/log"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

// MockTransport records every request and answers from a table of canned
// results keyed by method.
type MockTransport struct {
	mu       sync.Mutex
	requests []rpc.Request

	// Mock data
	Results map[string]string
	Errors  map[string]error
}

// NewMockTransport creates a mock transport with the given results.
func NewMockTransport(results map[string]string) *MockTransport {
	if results == nil {
		results = map[string]string{}
	}
	return &MockTransport{Results: results, Errors: map[string]error{}}
}

// Send records req and returns the canned reply for its method. Methods
// without one reply null.
func (m *MockTransport) Send(_ context.Context, req rpc.Request) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if err, ok := m.Errors[req.Method]; ok {
		return nil, err
	}
	if res, ok := m.Results[req.Method]; ok {
		return json.RawMessage(res), nil
	}
	return json.RawMessage("null"), nil
}

// Calls returns how many requests were sent.
func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Last returns the most recent request.
func (m *MockTransport) Last(t *testing.T) rpc.Request {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		t.Fatal("no request was sent")
	}
	return m.requests[len(m.requests)-1]
}

// LastParams returns the JSON encoding of the most recent request parameters.
func (m *MockTransport) LastParams(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(m.Last(t).Params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return string(data)
}

func newTestService(t *testing.T, results map[string]string) (*Service, *MockTransport) {
	t.Helper()
	mock := NewMockTransport(results)
	svc, err := New(Bitcoin(), rpc.ConnectionParameters{User: "rpcuser", Password: "rpcpass"}, mock, log.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc, mock
}

func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
