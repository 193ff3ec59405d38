package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/bus"
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/security"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorSlices
	MonitorSecuritiesChanged
	MonitorSymbolChanged
	MonitorOrders
	MonitorAssignments
	MonitorEnd
)

const monitorComponentName = "middleware.monitor"

// Monitor logs the events selected by its flags before handing them on.
type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		logger: logger.Named(monitorComponentName),
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithSlice(handler bus.SliceEventHandler) bus.SliceEventHandler {
	return func(ctx context.Context, slice common.Slice) error {
		if m.enabled(MonitorSlices) {
			m.logger.Info("slice",
				zap.Time("ts", slice.TimeStamp),
				zap.Strings("keys", slice.Keys()),
				zap.Int("chains", len(slice.OptionChains)))
		}
		if m.enabled(MonitorSymbolChanged) {
			for _, ev := range slice.SymbolChangedEvents {
				m.logger.Info("symbol changed", ev.Fields()...)
			}
		}
		return handler(ctx, slice)
	}
}

func (m *Monitor) WithSecuritiesChanged(handler bus.SecuritiesChangedEventHandler) bus.SecuritiesChangedEventHandler {
	return func(ctx context.Context, changes common.SecurityChanges) error {
		if m.enabled(MonitorSecuritiesChanged) {
			m.logger.Info("securities changed",
				zap.Time("ts", changes.TimeStamp),
				zap.Int("added", len(changes.Added)),
				zap.Int("removed", len(changes.Removed)))
		}
		return handler(ctx, changes)
	}
}

func (m *Monitor) WithOrder(handler bus.OrderEventHandler) bus.OrderEventHandler {
	return func(ctx context.Context, ev common.OrderEvent) error {
		if m.enabled(MonitorOrders) {
			m.logger.Info("order event", ev.Fields()...)
		}
		return handler(ctx, ev)
	}
}

func (m *Monitor) WithAssignment(handler bus.AssignmentEventHandler) bus.AssignmentEventHandler {
	return func(ctx context.Context, a security.Assignment) error {
		if m.enabled(MonitorAssignments) {
			m.logger.Info("assignment", append(a.Symbol.Fields(),
				zap.String("quantity", a.Proposal.Quantity.String()),
				zap.String("tag", a.Proposal.Tag))...)
		}
		return handler(ctx, a)
	}
}

func (m *Monitor) WithEnd(handler bus.EndEventHandler) bus.EndEventHandler {
	return func(ctx context.Context, end bus.EndOfAlgorithm) error {
		if m.enabled(MonitorEnd) {
			m.logger.Info("end of algorithm", zap.Time("ts", end.TimeStamp))
		}
		return handler(ctx, end)
	}
}

// ParseMonitorFlags maps configuration names onto flags. Unknown names are ignored.
func ParseMonitorFlags(names []string) MonitorFlags {
	var flags MonitorFlags
	for _, name := range names {
		switch name {
		case "all":
			flags |= MonitorAll
		case "slices":
			flags |= MonitorSlices
		case "securities_changed":
			flags |= MonitorSecuritiesChanged
		case "symbol_changed":
			flags |= MonitorSymbolChanged
		case "orders":
			flags |= MonitorOrders
		case "assignments":
			flags |= MonitorAssignments
		case "end":
			flags |= MonitorEnd
		}
	}
	if flags == 0 {
		return MonitorNone
	}
	return flags
}
