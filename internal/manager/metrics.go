package manager

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/abgdnv/productmanager/internal/manager"

// operationMetrics counts finished operations and their latency by kind, page and status.
type operationMetrics struct {
	finished metric.Int64Counter
	duration metric.Float64Histogram
}

func newOperationMetrics(mp metric.MeterProvider) operationMetrics {
	meter := mp.Meter(meterName)
	finished, err := meter.Int64Counter("manager.operations",
		metric.WithDescription("Page API operations finished by the manager"))
	if err != nil {
		panic(fmt.Sprintf("failed to create manager.operations counter: %v", err))
	}
	duration, err := meter.Float64Histogram("manager.operation.duration",
		metric.WithDescription("Time from issuing an operation to applying its outcome"),
		metric.WithUnit("s"))
	if err != nil {
		panic(fmt.Sprintf("failed to create manager.operation.duration histogram: %v", err))
	}
	return operationMetrics{finished: finished, duration: duration}
}

func (om operationMetrics) record(ctx context.Context, op *Operation, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("kind", string(op.Kind)),
		attribute.Int("page", int(op.Page)),
		attribute.String("status", string(op.Status())),
	)
	om.finished.Add(ctx, 1, attrs)
	om.duration.Record(ctx, elapsed.Seconds(), attrs)
}
