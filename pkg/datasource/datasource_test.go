package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/parity/pkg/common"
)

func frameAt(day int, ticker string) common.Frame {
	ts := time.Date(2024, 1, day, 16, 0, 0, 0, time.UTC)
	return common.Frame{TimeStamp: ts, Bars: []common.Bar{{Symbol: common.NewEquity(ticker, common.MarketUSA), TimeStamp: ts}}}
}

func drain(t *testing.T, feed Feed) []common.Frame {
	t.Helper()
	var out []common.Frame
	for {
		frame, err := feed.Next(context.Background())
		if errors.Is(err, ErrEOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, frame)
	}
}

func TestFrameFeed_SortsAndEnds(t *testing.T) {
	feed := NewFrameFeed(frameAt(3, "A"), frameAt(1, "A"), frameAt(2, "A"))
	frames := drain(t, feed)
	require.Len(t, frames, 3)
	assert.Equal(t, 1, frames[0].TimeStamp.Day())
	assert.Equal(t, 3, frames[2].TimeStamp.Day())

	_, err := feed.Next(context.Background())
	assert.True(t, errors.Is(err, ErrEOF))
}

func TestMerge(t *testing.T) {
	a := NewFrameFeed(frameAt(1, "A"), frameAt(3, "A"))
	b := NewFrameFeed(frameAt(1, "B"), frameAt(2, "B"))
	empty := NewFrameFeed()

	frames := drain(t, Merge(a, b, empty))
	require.Len(t, frames, 3)
	assert.Len(t, frames[0].Bars, 2)
	assert.Equal(t, "B", frames[1].Bars[0].Symbol.Ticker)
	assert.Equal(t, "A", frames[2].Bars[0].Symbol.Ticker)
}

func TestCreateFrameDispatcher(t *testing.T) {
	feed := NewFrameFeed(frameAt(1, "A"))
	var got []common.Frame
	doOnce := CreateFrameDispatcher(feed, func(_ context.Context, f common.Frame) error {
		got = append(got, f)
		return nil
	})

	require.NoError(t, doOnce(context.Background()))
	assert.True(t, errors.Is(doOnce(context.Background()), ErrEOF))
	assert.Len(t, got, 1)
}

func TestFrameFeed_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFrameFeed(frameAt(1, "A")).Next(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
