package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"portgraph/internal/models"
	"portgraph/internal/storage"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStorage creates a new storage wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("portgraph/storage")
	meter := otel.Meter("portgraph/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStorage) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	ctx, span := s.startSpan(ctx, "SaveSnapshot",
		attribute.String("sysroot_path", snapshot.SysrootPath),
		attribute.String("board", snapshot.Board),
	)
	start := time.Now()
	err := s.inner.SaveSnapshot(ctx, snapshot)
	s.record(ctx, span, "SaveSnapshot", start, err)
	return err
}

func (s *InstrumentedStorage) GetSnapshot(ctx context.Context, sysrootPath string) (*models.Snapshot, error) {
	ctx, span := s.startSpan(ctx, "GetSnapshot", attribute.String("sysroot_path", sysrootPath))
	start := time.Now()
	result, err := s.inner.GetSnapshot(ctx, sysrootPath)
	s.record(ctx, span, "GetSnapshot", start, err)
	return result, err
}

func (s *InstrumentedStorage) ListSnapshots(ctx context.Context) ([]*models.SnapshotInfo, error) {
	ctx, span := s.startSpan(ctx, "ListSnapshots")
	start := time.Now()
	result, err := s.inner.ListSnapshots(ctx)
	s.record(ctx, span, "ListSnapshots", start, err)
	return result, err
}

func (s *InstrumentedStorage) DeleteSnapshot(ctx context.Context, sysrootPath string) error {
	ctx, span := s.startSpan(ctx, "DeleteSnapshot", attribute.String("sysroot_path", sysrootPath))
	start := time.Now()
	err := s.inner.DeleteSnapshot(ctx, sysrootPath)
	s.record(ctx, span, "DeleteSnapshot", start, err)
	return err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
