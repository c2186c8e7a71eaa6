package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/typewire-dev/typewire/pkg/protocol"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(
		WithRegistry(reg),
		WithNamespace("tw"),
		WithConstLabels(prometheus.Labels{"node": "a"}),
		WithBuckets([]float64{1e-6, 1e-3}),
	)

	m.RecordDecoded(protocol.TagAppend)
	m.RecordDecoded(protocol.TagAppend)
	m.RecordMalformed()
	m.RecordDropped(DropQueueFull)
	m.RecordApply(protocol.TagInit, 3*time.Microsecond)
	m.RecordApplyError("duplicate_id")
	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.RecordRelayed(protocol.TagDone)
	m.RecordSlowConsumer()

	if got := metricCounterValue(t, m.framesDecoded.WithLabelValues("Append")); got != 2 {
		t.Errorf("frames_decoded_total{Append} = %v, want 2", got)
	}
	if got := metricCounterValue(t, m.framesMalformed); got != 1 {
		t.Errorf("frames_malformed_total = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.framesDropped.WithLabelValues(DropQueueFull)); got != 1 {
		t.Errorf("frames_dropped_total{queue_full} = %v, want 1", got)
	}
	if got := metricHistogramCount(t, m.applyDuration.WithLabelValues("Init")); got != 1 {
		t.Errorf("apply_duration_seconds{Init} count = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.applyErrors.WithLabelValues("duplicate_id")); got != 1 {
		t.Errorf("apply_errors_total = %v, want 1", got)
	}
	if got := metricGaugeValue(t, m.relayConnections); got != 1 {
		t.Errorf("relay_connections = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.relayFrames.WithLabelValues("Done")); got != 1 {
		t.Errorf("relay_frames_total{Done} = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.relaySlowConsumers); got != 1 {
		t.Errorf("relay_slow_consumers_total = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "tw_frames_decoded_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected namespaced metric tw_frames_decoded_total in registry")
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.RecordDecoded(protocol.TagInit)
	m.RecordMalformed()
	m.RecordDropped(DropMalformed)
	m.RecordApply(protocol.TagInit, time.Millisecond)
	m.RecordApplyError("x")
	m.ConnOpened()
	m.ConnClosed()
	m.RecordRelayed(protocol.TagInit)
	m.RecordSlowConsumer()
}

type recordSpan struct {
	noop.Span
	attrs  []attribute.KeyValue
	status codes.Code
	err    error
	ended  bool
}

func (s *recordSpan) SetStatus(c codes.Code, _ string) { s.status = c }
func (s *recordSpan) RecordError(err error, _ ...trace.EventOption) { s.err = err }
func (s *recordSpan) End(...trace.SpanEndOption) { s.ended = true }
func (s *recordSpan) SetAttributes(kv ...attribute.KeyValue) { s.attrs = append(s.attrs, kv...) }

type recordTracer struct {
	noop.Tracer
	name string
	span *recordSpan
}

func (r *recordTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	r.name = name
	cfg := trace.NewSpanStartConfig(opts...)
	r.span = &recordSpan{attrs: cfg.Attributes()}
	return ctx, r.span
}

func TestStartSpanAttributes(t *testing.T) {
	tr := &recordTracer{}
	_, span := StartSpan(context.Background(), tr, "typewire.apply", protocol.Append{ID: 7, Text: "x"})
	EndSpan(span, nil)

	if tr.name != "typewire.apply" {
		t.Errorf("span name = %q", tr.name)
	}
	want := map[attribute.Key]attribute.Value{
		AttrKind:          attribute.StringValue("Append"),
		AttrParticipantID: attribute.Int64Value(7),
	}
	for _, kv := range tr.span.attrs {
		if w, ok := want[kv.Key]; ok {
			if kv.Value != w {
				t.Errorf("attribute %s = %v, want %v", kv.Key, kv.Value.Emit(), w.Emit())
			}
			delete(want, kv.Key)
		}
	}
	if len(want) != 0 {
		t.Errorf("missing attributes: %v", want)
	}
	if !tr.span.ended || tr.span.status != codes.Ok {
		t.Errorf("span ended=%v status=%v, want ended with Ok", tr.span.ended, tr.span.status)
	}
}

func TestEndSpanError(t *testing.T) {
	tr := &recordTracer{}
	_, span := StartSpan(context.Background(), tr, "typewire.apply", protocol.SetTopic{Text: "t"})
	boom := errors.New("boom")
	EndSpan(span, boom)

	if tr.span.status != codes.Error || !errors.Is(tr.span.err, boom) {
		t.Errorf("status=%v err=%v, want Error/boom", tr.span.status, tr.span.err)
	}
	for _, kv := range tr.span.attrs {
		if kv.Key == AttrParticipantID {
			t.Error("SetTopic span should not carry a participant id")
		}
	}
}

func TestStartSpanDefaults(t *testing.T) {
	ctx, span := StartSpan(context.Background(), nil, "noop", nil)
	if ctx == nil || span == nil {
		t.Fatal("StartSpan with nil tracer should fall back to the global provider")
	}
	EndSpan(span, nil)
}

func TestAnnotate(t *testing.T) {
	tr := &recordTracer{}
	_, span := StartSpan(context.Background(), tr, "relay.frame", nil)
	if len(tr.span.attrs) != 0 {
		t.Fatalf("span started without event has attributes %v", tr.span.attrs)
	}

	Annotate(span, protocol.Done{ID: 3})
	Annotate(span, nil)
	EndSpan(span, nil)

	if len(tr.span.attrs) != 2 {
		t.Fatalf("attributes = %v, want kind and participant", tr.span.attrs)
	}
	if tr.span.attrs[0].Value.AsString() != "Done" || tr.span.attrs[1].Value.AsInt64() != 3 {
		t.Errorf("attributes = %v", tr.span.attrs)
	}
}
