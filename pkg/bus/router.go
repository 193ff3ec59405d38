package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const routerComponentName = "bus.router"

var ErrCapacityReached = errors.New("event capacity reached")

type event struct {
	id   EventId
	data any
}

// Router delivers events to handlers on a single goroutine. A handler error is fatal: the loop
// stops and reports it.
type Router struct {
	logger *zap.Logger
	events chan event

	OnSlice             SliceEventHandler
	OnSecuritiesChanged SecuritiesChangedEventHandler
	OnOrder             OrderEventHandler
	OnAssignment        AssignmentEventHandler
	OnEnd               EndEventHandler

	runTime       atomic.Int64
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

func NewRouter(logger *zap.Logger, eventCapacity int) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger: logger.Named(routerComponentName),
		events: make(chan event, eventCapacity),
	}
}

func (r *Router) Post(id EventId, data any) error {
	select {
	case r.events <- event{id, data}:
		r.postCount.Add(1)
		return nil
	default:
		r.postFails.Add(1)
		return fmt.Errorf("post %s: %w", id, ErrCapacityReached)
	}
}

// ExecLoop alternates between draining posted events and calling doOnce, which typically reads
// the next frame and posts its events. When doOnce fails the queued events are still delivered
// before its error is returned.
func (r *Router) ExecLoop(ctx context.Context, doOnce func(context.Context) error) <-chan error {
	r.resetStatistics()
	errChan := make(chan error, 1)

	go func() {
		start := time.Now()
		defer func() {
			r.runTime.Add(int64(time.Since(start)))
			close(errChan)
		}()

		for {
			select {
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			case ev := <-r.events:
				if err := r.dispatch(ctx, ev); err != nil {
					errChan <- err
					return
				}
			default:
				if err := doOnce(ctx); err != nil {
					if drainErr := r.drain(ctx); drainErr != nil {
						errChan <- drainErr
						return
					}
					errChan <- err
					return
				}
			}
		}
	}()

	return errChan
}

func (r *Router) drain(ctx context.Context) error {
	for {
		select {
		case ev := <-r.events:
			if err := r.dispatch(ctx, ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (r *Router) Statistics() Statistics {
	runTime := time.Duration(r.runTime.Load())
	stats := Statistics{
		RunTime:       runTime,
		PostCount:     r.postCount.Load(),
		PostFails:     r.postFails.Load(),
		DispatchCount: r.dispatchCount.Load(),
		DispatchFails: r.dispatchFails.Load(),
	}
	if runTime > 0 {
		stats.Throughput = float64(stats.DispatchCount) / runTime.Seconds()
	}
	return stats
}

func (r *Router) resetStatistics() {
	r.runTime.Store(0)
	r.postCount.Store(0)
	r.postFails.Store(0)
	r.dispatchCount.Store(0)
	r.dispatchFails.Store(0)
}

func (r *Router) dispatch(ctx context.Context, ev event) error {
	r.dispatchCount.Add(1)
	if err := r.route(ctx, ev); err != nil {
		r.dispatchFails.Add(1)
		return err
	}
	return nil
}

func (r *Router) route(ctx context.Context, ev event) error {
	switch ev.id {
	case SliceEvent:
		return invoke(ctx, r, ev, r.OnSlice)
	case SecuritiesChangedEvent:
		return invoke(ctx, r, ev, r.OnSecuritiesChanged)
	case OrderEvent:
		return invoke(ctx, r, ev, r.OnOrder)
	case AssignmentEvent:
		return invoke(ctx, r, ev, r.OnAssignment)
	case EndEvent:
		return invoke(ctx, r, ev, r.OnEnd)
	default:
		return fmt.Errorf("unsupported event id: %v", ev.id)
	}
}

func invoke[T any](ctx context.Context, r *Router, ev event, handler EventHandler[T]) error {
	data, ok := ev.data.(T)
	if !ok {
		return fmt.Errorf("invalid type assertion for %s event: %T", ev.id, ev.data)
	}
	if handler == nil {
		r.logger.Debug("handler is nil", zap.Stringer("event", ev.id))
		return nil
	}
	return handler(ctx, data)
}

