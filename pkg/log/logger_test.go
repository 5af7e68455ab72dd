package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		records = append(records, rec)
	}
	return records
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWithWriter_ServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "coinwatch", "1.0.0", "info", "json")

	logger.WithComponent("notify").WithCoin("bitcoin", "main").Info("started")

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	for key, want := range map[string]string{
		"service":   "coinwatch",
		"version":   "1.0.0",
		"component": "notify",
		"coin":      "bitcoin",
		"network":   "main",
		"msg":       "started",
	} {
		if rec[key] != want {
			t.Errorf("%s = %v, want %s", key, rec[key], want)
		}
	}
}

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "coinrpc", "dev", "info", "text").Info("hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestLogCall(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "coinrpc", "dev", "debug", "json")

	logger.LogCall("getblockcount", 0, 5*time.Millisecond, nil)
	logger.LogCall("getblock", 2, time.Millisecond, errors.New("boom"))

	recs := decodeLines(t, &buf)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0]["level"] != "DEBUG" || recs[0]["rpc_method"] != "getblockcount" {
		t.Errorf("unexpected success record %v", recs[0])
	}
	if recs[1]["level"] != "WARN" || recs[1]["error"] != "boom" {
		t.Errorf("unexpected failure record %v", recs[1])
	}
}

func TestLogCall_SuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "coinrpc", "dev", "info", "json").
		LogCall("ping", 0, time.Millisecond, nil)

	if buf.Len() != 0 {
		t.Errorf("expected debug record to be dropped, got %q", buf.String())
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "coinrpc", "dev", "info", "json")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	logger.WithContext(ctx).Info("call")

	recs := decodeLines(t, &buf)
	if recs[0]["request_id"] != "req-1" {
		t.Errorf("expected request_id, got %v", recs[0])
	}
}

func TestWithError_Nil(t *testing.T) {
	logger := Discard()
	if logger.WithError(nil) != logger {
		t.Error("expected WithError(nil) to return the same logger")
	}
}
