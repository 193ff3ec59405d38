package custom

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
)

// Feed turns the lines of a custom data subscription into frames. Lines are fetched lazily on the
// first call and kept, so records preceding the start remain available as history.
type Feed struct {
	sub   datasource.Subscription
	lines LineSource
	start time.Time
	end   time.Time
	live  bool

	records []common.CustomData
	loaded  bool
	idx     int
}

func NewFeed(sub datasource.Subscription, lines LineSource, start, end time.Time, live bool) *Feed {
	return &Feed{
		sub:   sub,
		lines: lines,
		start: start,
		end:   end,
		live:  live,
	}
}

func (f *Feed) Next(ctx context.Context) (common.Frame, error) {
	if err := f.load(ctx); err != nil {
		return common.Frame{}, err
	}

	for f.idx < len(f.records) {
		record := f.records[f.idx]
		f.idx++

		if record.TimeStamp.Before(f.start) {
			continue
		}
		if record.TimeStamp.After(f.end) {
			f.idx = len(f.records)
			break
		}
		return common.Frame{TimeStamp: record.EndTime, Custom: []common.CustomData{record}}, nil
	}
	return common.Frame{}, datasource.ErrEOF
}

// LastKnown returns the latest record completed at or before the given time as a bar.
func (f *Feed) LastKnown(ctx context.Context, before time.Time) []common.Bar {
	if err := f.load(ctx); err != nil {
		return nil
	}

	for i := len(f.records) - 1; i >= 0; i-- {
		if !f.records[i].EndTime.After(before) {
			return []common.Bar{f.records[i].Bar()}
		}
	}
	return nil
}

func (f *Feed) load(ctx context.Context) error {
	if f.loaded {
		return nil
	}

	seen := make(map[string]struct{})
	sort := false
	for day := f.start; !day.After(f.end); day = day.AddDate(0, 0, 1) {
		src := f.sub.Custom.Source(day, f.live)
		if _, ok := seen[src.URL]; ok {
			continue
		}
		seen[src.URL] = struct{}{}
		sort = sort || src.Sort

		lines, err := f.lines.Lines(ctx, src)
		if err != nil {
			return fmt.Errorf("unable to load custom data for %s: %w", f.sub.Symbol, err)
		}
		for _, line := range lines {
			record := f.sub.Custom.Reader(f.sub.Symbol, line, day, f.live)
			if record.IsEmpty() {
				continue
			}
			f.records = append(f.records, record)
		}
	}

	if sort {
		slices.SortStableFunc(f.records, func(a, b common.CustomData) int {
			return a.TimeStamp.Compare(b.TimeStamp)
		})
	}
	f.loaded = true
	return nil
}
