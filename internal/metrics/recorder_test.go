package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

type fakeWriter struct {
	mu     sync.Mutex
	points []*write.Point
}

func (w *fakeWriter) WritePoint(p *write.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, p)
}

func tagMap(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fieldMap(p *write.Point) map[string]any {
	out := make(map[string]any)
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

// fixedClock advances by step on every reading.
func fixedClock(step time.Duration) func() time.Time {
	t := time.Unix(1700000000, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestMiddleware(t *testing.T) {
	sink := &fakeWriter{}
	rec := NewRecorder(sink, "litecoin", "mainnet")
	rec.now = fixedClock(5 * time.Millisecond)

	replies := map[string]error{
		"getblockcount": nil,
		"getblock":      errors.NewProtocolError("getblock", &btcjson.RPCError{Code: -5, Message: "Block not found"}),
		"ping":          errors.New(errors.ErrorTypeTransport, "rpc_call", "connection refused"),
	}
	base := rpc.TransportFunc(func(_ context.Context, req rpc.Request) (json.RawMessage, error) {
		if err := replies[req.Method]; err != nil {
			return nil, err
		}
		return json.RawMessage(`1`), nil
	})
	transport := rpc.Chain(base, rec.Middleware())

	for _, method := range []string{"getblockcount", "getblock", "ping"} {
		raw, err := transport.Send(context.Background(), rpc.Request{Method: method})
		if err != replies[method] {
			t.Errorf("%s: error = %v, want passthrough", method, err)
		}
		if err == nil && string(raw) != "1" {
			t.Errorf("%s: result = %s", method, raw)
		}
	}

	if len(sink.points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(sink.points))
	}

	tests := []struct {
		method  string
		outcome string
		code    any
	}{
		{"getblockcount", "ok", nil},
		{"getblock", "protocol", int64(-5)},
		{"ping", "transport", nil},
	}
	for i, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			p := sink.points[i]
			if p.Name() != MeasurementRPC {
				t.Errorf("measurement = %s", p.Name())
			}
			tags := tagMap(p)
			want := map[string]string{"coin": "litecoin", "network": "mainnet", "method": tt.method, "outcome": tt.outcome}
			for k, v := range want {
				if tags[k] != v {
					t.Errorf("tag %s = %q, want %q", k, tags[k], v)
				}
			}
			fields := fieldMap(p)
			if fields["duration_ms"] != 5.0 {
				t.Errorf("duration_ms = %v", fields["duration_ms"])
			}
			if fields["count"] != int64(1) {
				t.Errorf("count = %v (%T)", fields["count"], fields["count"])
			}
			if fields["rpc_code"] != tt.code {
				t.Errorf("rpc_code = %v, want %v", fields["rpc_code"], tt.code)
			}
		})
	}
}

func TestRecordNotificationAndPublish(t *testing.T) {
	sink := &fakeWriter{}
	rec := NewRecorder(sink, "dogecoin", "testnet")

	rec.RecordNotification("hashblock", 2, false)
	rec.RecordPublish("coin.blocks", 120, fmt.Errorf("boom"))

	if len(sink.points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(sink.points))
	}

	n := sink.points[0]
	if n.Name() != MeasurementNotifications || tagMap(n)["topic"] != "hashblock" {
		t.Errorf("notification point = %s %v", n.Name(), tagMap(n))
	}
	if f := fieldMap(n); f["missed"] != int64(2) || f["duplicate"] != false {
		t.Errorf("notification fields = %v", f)
	}

	p := sink.points[1]
	if p.Name() != MeasurementPublish || tagMap(p)["outcome"] != "internal" {
		t.Errorf("publish point = %s %v", p.Name(), tagMap(p))
	}
	if f := fieldMap(p); f["bytes"] != int64(120) {
		t.Errorf("publish fields = %v", f)
	}
}

func TestRecorder_NoWriter(t *testing.T) {
	rec := NewRecorder(nil, "bitcoin", "mainnet")
	rec.RecordCall("getblockcount", time.Millisecond, nil)
	rec.RecordNotification("hashtx", 0, true)

	var nilRec *Recorder
	nilRec.RecordPublish("coin.blocks", 1, nil)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errors.NewUsageError("getrawtransaction", "bad verbosity"), "usage"},
		{errors.NewParseError("getblockcount", "result", []byte(`"x"`), nil), "parse"},
		{errors.Wrap(errors.New(errors.ErrorTypeTimeout, "rpc_call", "deadline"), errors.ErrorTypeTimeout, "outer", "wrapped"), "timeout"},
		{fmt.Errorf("plain"), "internal"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
