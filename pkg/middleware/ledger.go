package middleware

import (
	"context"
	"fmt"

	"github.com/peter-kozarec/parity/pkg/bus"
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility"
)

// Recorder persists the events a run produces.
type Recorder interface {
	RecordOrderEvent(ctx context.Context, eid utility.ExecutionID, ev common.OrderEvent) error
	RecordSymbolChanged(ctx context.Context, eid utility.ExecutionID, ev common.SymbolChangedEvent) error
}

// Ledger writes order events and contract mappings through a Recorder. A failed write stops the
// run like any other handler error.
type Ledger struct {
	recorder Recorder
	eid      utility.ExecutionID
}

func NewLedger(recorder Recorder, eid utility.ExecutionID) *Ledger {
	return &Ledger{
		recorder: recorder,
		eid:      eid,
	}
}

func (l *Ledger) WithOrder(handler bus.OrderEventHandler) bus.OrderEventHandler {
	return func(ctx context.Context, ev common.OrderEvent) error {
		if err := l.recorder.RecordOrderEvent(ctx, l.eid, ev); err != nil {
			return fmt.Errorf("unable to record order event: %w", err)
		}
		return handler(ctx, ev)
	}
}

func (l *Ledger) WithSlice(handler bus.SliceEventHandler) bus.SliceEventHandler {
	return func(ctx context.Context, slice common.Slice) error {
		for _, ev := range slice.SymbolChangedEvents {
			if err := l.recorder.RecordSymbolChanged(ctx, l.eid, ev); err != nil {
				return fmt.Errorf("unable to record symbol change: %w", err)
			}
		}
		return handler(ctx, slice)
	}
}
