package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/security"
)

var errDone = errors.New("done")

func TestBusRouter_Post(t *testing.T) {
	r := NewRouter(zaptest.NewLogger(t), 1)

	require.NoError(t, r.Post(SliceEvent, common.Slice{}))
	err := r.Post(SliceEvent, common.Slice{})
	assert.True(t, errors.Is(err, ErrCapacityReached))

	assert.Equal(t, uint64(1), r.postCount.Load())
	assert.Equal(t, uint64(1), r.postFails.Load())
}

func TestBusRouter_ExecLoopDeliversInOrder(t *testing.T) {
	r := NewRouter(zaptest.NewLogger(t), 16)

	var got []EventId
	r.OnSlice = func(context.Context, common.Slice) error { got = append(got, SliceEvent); return nil }
	r.OnSecuritiesChanged = func(context.Context, common.SecurityChanges) error {
		got = append(got, SecuritiesChangedEvent)
		return nil
	}
	r.OnEnd = func(context.Context, EndOfAlgorithm) error { got = append(got, EndEvent); return nil }

	calls := 0
	doOnce := func(context.Context) error {
		calls++
		switch calls {
		case 1:
			assert.NoError(t, r.Post(SecuritiesChangedEvent, common.SecurityChanges{}))
			assert.NoError(t, r.Post(SliceEvent, common.Slice{}))
			return nil
		default:
			assert.NoError(t, r.Post(EndEvent, EndOfAlgorithm{}))
			return errDone
		}
	}

	err := <-r.ExecLoop(context.Background(), doOnce)
	assert.True(t, errors.Is(err, errDone))
	assert.Equal(t, []EventId{SecuritiesChangedEvent, SliceEvent, EndEvent}, got)
	assert.Equal(t, uint64(3), r.Statistics().DispatchCount)
}

func TestBusRouter_HandlerErrorIsFatal(t *testing.T) {
	r := NewRouter(zaptest.NewLogger(t), 16)
	boom := errors.New("boom")

	delivered := 0
	r.OnSlice = func(context.Context, common.Slice) error {
		delivered++
		return boom
	}

	doOnce := func(context.Context) error {
		assert.NoError(t, r.Post(SliceEvent, common.Slice{}))
		assert.NoError(t, r.Post(SliceEvent, common.Slice{}))
		return nil
	}

	err := <-r.ExecLoop(context.Background(), doOnce)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, uint64(1), r.Statistics().DispatchFails)
}

func TestBusRouter_ContextCancel(t *testing.T) {
	r := NewRouter(zaptest.NewLogger(t), 16)
	ctx, cancel := context.WithCancel(context.Background())

	errChan := r.ExecLoop(ctx, func(context.Context) error {
		time.Sleep(time.Millisecond)
		return nil
	})
	cancel()

	select {
	case err := <-errChan:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("exec loop did not stop")
	}
}

func TestBusRouter_InvalidPayload(t *testing.T) {
	r := NewRouter(zaptest.NewLogger(t), 16)
	r.OnAssignment = func(context.Context, security.Assignment) error { return nil }

	doOnce := func(context.Context) error {
		return r.Post(AssignmentEvent, "not an assignment")
	}

	err := <-r.ExecLoop(context.Background(), doOnce)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid type assertion")
}

func TestMergeHandlers(t *testing.T) {
	var order []int
	boom := errors.New("boom")
	h := MergeHandlers[common.OrderEvent](
		func(context.Context, common.OrderEvent) error { order = append(order, 1); return nil },
		nil,
		func(context.Context, common.OrderEvent) error { order = append(order, 2); return boom },
		func(context.Context, common.OrderEvent) error { order = append(order, 3); return nil },
	)

	err := h(context.Background(), common.OrderEvent{})
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, []int{1, 2}, order)
}
