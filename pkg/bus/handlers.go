package bus

import (
	"context"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/security"
)

type EventHandler[T any] func(context.Context, T) error

type SliceEventHandler = EventHandler[common.Slice]
type SecuritiesChangedEventHandler = EventHandler[common.SecurityChanges]
type OrderEventHandler = EventHandler[common.OrderEvent]
type AssignmentEventHandler = EventHandler[security.Assignment]
type EndEventHandler = EventHandler[EndOfAlgorithm]

// MergeHandlers calls handlers in order and stops at the first error.
func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) error {
		for _, handler := range handlers {
			if handler == nil {
				continue
			}
			if err := handler(ctx, event); err != nil {
				return err
			}
		}
		return nil
	}
}
