package datasource

import (
	"context"
	"errors"
	"slices"

	"github.com/peter-kozarec/parity/pkg/common"
)

// FrameFeed replays frames held in memory.
type FrameFeed struct {
	frames []common.Frame
	idx    int
}

func NewFrameFeed(frames ...common.Frame) *FrameFeed {
	slices.SortStableFunc(frames, func(a, b common.Frame) int {
		return a.TimeStamp.Compare(b.TimeStamp)
	})
	return &FrameFeed{frames: frames}
}

func (f *FrameFeed) Next(ctx context.Context) (common.Frame, error) {
	if err := ctx.Err(); err != nil {
		return common.Frame{}, err
	}
	if f.idx >= len(f.frames) {
		return common.Frame{}, ErrEOF
	}
	frame := f.frames[f.idx]
	f.idx++
	return frame, nil
}

type mergedFeed struct {
	feeds   []Feed
	heads   []*common.Frame
	started bool
}

// Merge interleaves feeds by time. Frames sharing a timestamp are combined into one.
func Merge(feeds ...Feed) Feed {
	if len(feeds) == 1 {
		return feeds[0]
	}
	return &mergedFeed{feeds: feeds, heads: make([]*common.Frame, len(feeds))}
}

func (m *mergedFeed) Next(ctx context.Context) (common.Frame, error) {
	if !m.started {
		for i := range m.feeds {
			if err := m.advance(ctx, i); err != nil {
				return common.Frame{}, err
			}
		}
		m.started = true
	}

	earliest := -1
	for i, head := range m.heads {
		if head != nil && (earliest < 0 || head.TimeStamp.Before(m.heads[earliest].TimeStamp)) {
			earliest = i
		}
	}
	if earliest < 0 {
		return common.Frame{}, ErrEOF
	}

	out := common.Frame{TimeStamp: m.heads[earliest].TimeStamp}
	for i, head := range m.heads {
		if head == nil || !head.TimeStamp.Equal(out.TimeStamp) {
			continue
		}
		out.Bars = append(out.Bars, head.Bars...)
		out.Quotes = append(out.Quotes, head.Quotes...)
		out.Custom = append(out.Custom, head.Custom...)
		if err := m.advance(ctx, i); err != nil {
			return common.Frame{}, err
		}
	}
	return out, nil
}

func (m *mergedFeed) advance(ctx context.Context, i int) error {
	frame, err := m.feeds[i].Next(ctx)
	if errors.Is(err, ErrEOF) {
		m.heads[i] = nil
		return nil
	}
	if err != nil {
		return err
	}
	m.heads[i] = &frame
	return nil
}
