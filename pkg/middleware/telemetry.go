package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/bus"
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/security"
	"github.com/peter-kozarec/parity/pkg/utility/circular"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

const (
	telemetryComponentName = "middleware.telemetry"
	sliceWidthWindow       = 256
)

// Telemetry counts delivered events. Counters are touched only from the dispatch goroutine.
type Telemetry struct {
	logger *zap.Logger

	sliceEventCounter             int64
	securitiesChangedEventCounter int64
	symbolChangedEventCounter     int64
	orderEventCounter             int64
	assignmentEventCounter        int64
	endEventCounter               int64

	// number of symbols with data in each of the recent slices
	sliceWidths *circular.Window
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telemetry{
		logger:      logger.Named(telemetryComponentName),
		sliceWidths: circular.NewWindow(sliceWidthWindow),
	}
}

func (t *Telemetry) WithSlice(handler bus.SliceEventHandler) bus.SliceEventHandler {
	return func(ctx context.Context, slice common.Slice) error {
		t.sliceEventCounter++
		t.symbolChangedEventCounter += int64(len(slice.SymbolChangedEvents))
		t.sliceWidths.Push(fixed.FromInt(len(slice.Keys()), 0))
		return handler(ctx, slice)
	}
}

func (t *Telemetry) WithSecuritiesChanged(handler bus.SecuritiesChangedEventHandler) bus.SecuritiesChangedEventHandler {
	return func(ctx context.Context, changes common.SecurityChanges) error {
		t.securitiesChangedEventCounter++
		return handler(ctx, changes)
	}
}

func (t *Telemetry) WithOrder(handler bus.OrderEventHandler) bus.OrderEventHandler {
	return func(ctx context.Context, ev common.OrderEvent) error {
		t.orderEventCounter++
		return handler(ctx, ev)
	}
}

func (t *Telemetry) WithAssignment(handler bus.AssignmentEventHandler) bus.AssignmentEventHandler {
	return func(ctx context.Context, a security.Assignment) error {
		t.assignmentEventCounter++
		return handler(ctx, a)
	}
}

func (t *Telemetry) WithEnd(handler bus.EndEventHandler) bus.EndEventHandler {
	return func(ctx context.Context, end bus.EndOfAlgorithm) error {
		t.endEventCounter++
		return handler(ctx, end)
	}
}

func (t *Telemetry) Counters() map[string]int64 {
	return map[string]int64{
		"slices":             t.sliceEventCounter,
		"securities_changed": t.securitiesChangedEventCounter,
		"symbol_changed":     t.symbolChangedEventCounter,
		"orders":             t.orderEventCounter,
		"assignments":        t.assignmentEventCounter,
		"end":                t.endEventCounter,
	}
}

// SliceWidth returns the mean and standard deviation of the slice widths over the recent window.
func (t *Telemetry) SliceWidth() (mean, stdDev fixed.Point) {
	return t.sliceWidths.Mean(), t.sliceWidths.StdDev()
}

func (t *Telemetry) PrintStatistics() {
	mean, stdDev := t.SliceWidth()

	t.logger.Info("telemetry",
		zap.Int64("slice_events", t.sliceEventCounter),
		zap.Int64("securities_changed_events", t.securitiesChangedEventCounter),
		zap.Int64("symbol_changed_events", t.symbolChangedEventCounter),
		zap.Int64("order_events", t.orderEventCounter),
		zap.Int64("assignment_events", t.assignmentEventCounter),
		zap.Int64("end_events", t.endEventCounter),
		zap.Stringer("slice_width_mean", mean.Rescale(2)),
		zap.Stringer("slice_width_std_dev", stdDev.Rescale(2)))
}
