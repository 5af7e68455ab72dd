// Package metrics records coinrpc activity as InfluxDB points.
package metrics

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

// Measurement names.
const (
	MeasurementRPC           = "rpc_calls"
	MeasurementNotifications = "notifications"
	MeasurementPublish       = "events_published"
)

// OutcomeOK tags a call that returned a result.
const OutcomeOK = "ok"

// PointWriter is the sink for recorded points; *influx.Client satisfies it.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Recorder turns coinrpc activity into points tagged by coin and network.
type Recorder struct {
	writer  PointWriter
	coin    string
	network string
	now     func() time.Time
}

// NewRecorder creates a recorder. A nil writer records nothing.
func NewRecorder(writer PointWriter, coin, network string) *Recorder {
	return &Recorder{
		writer:  writer,
		coin:    coin,
		network: network,
		now:     time.Now,
	}
}

// Middleware returns an rpc.Middleware that writes one point per daemon call.
func (r *Recorder) Middleware() rpc.Middleware {
	return func(next rpc.Transport) rpc.Transport {
		return rpc.TransportFunc(func(ctx context.Context, req rpc.Request) (json.RawMessage, error) {
			start := r.now()
			raw, err := next.Send(ctx, req)
			r.RecordCall(req.Method, r.now().Sub(start), err)
			return raw, err
		})
	}
}

// RecordCall writes the outcome and latency of one daemon call.
func (r *Recorder) RecordCall(method string, duration time.Duration, err error) {
	if !r.enabled() {
		return
	}
	tags := r.tags()
	tags["method"] = method
	tags["outcome"] = Outcome(err)

	fields := map[string]any{
		"duration_ms": float64(duration.Nanoseconds()) / 1e6,
		"count":       1,
	}
	if code, ok := errors.RPCCode(err); ok {
		fields["rpc_code"] = int(code)
	}

	r.write(MeasurementRPC, tags, fields)
}

// RecordNotification writes one received ZMQ notification and any sequence gap.
func (r *Recorder) RecordNotification(topic string, missed uint32, duplicate bool) {
	if !r.enabled() {
		return
	}
	tags := r.tags()
	tags["topic"] = topic

	r.write(MeasurementNotifications, tags, map[string]any{
		"count":     1,
		"missed":    int64(missed),
		"duplicate": duplicate,
	})
}

// RecordPublish writes one event handed to the broker.
func (r *Recorder) RecordPublish(topic string, size int, err error) {
	if !r.enabled() {
		return
	}
	tags := r.tags()
	tags["topic"] = topic
	tags["outcome"] = Outcome(err)

	r.write(MeasurementPublish, tags, map[string]any{
		"count": 1,
		"bytes": size,
	})
}

func (r *Recorder) tags() map[string]string {
	return map[string]string{
		"coin":    r.coin,
		"network": r.network,
	}
}

func (r *Recorder) enabled() bool {
	return r != nil && r.writer != nil
}

func (r *Recorder) write(measurement string, tags map[string]string, fields map[string]any) {
	r.writer.WritePoint(write.NewPoint(measurement, tags, fields, r.now()))
}

// Outcome names the error category of err, or OutcomeOK for nil.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var se *errors.ServiceError
	if stderrors.As(err, &se) {
		return string(se.Type)
	}
	return string(errors.ErrorTypeInternal)
}
