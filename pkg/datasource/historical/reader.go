package historical

import (
	"context"
	"fmt"
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/utility"
)

const (
	invalidIndex           = -1
	barReaderComponentName = "datasource.historical.reader"
)

// BarReader feeds the bars of one symbol whose end time falls between from and to.
type BarReader struct {
	source *Source[BinaryBar]

	symbol common.Symbol
	from   int64
	to     int64
	idx    int64
}

func NewBarReader(source *Source[BinaryBar], symbol common.Symbol, from, to time.Time) *BarReader {
	return &BarReader{
		source: source,
		symbol: symbol,
		from:   from.UnixNano(),
		to:     to.UnixNano(),
		idx:    invalidIndex,
	}
}

func (r *BarReader) Next(ctx context.Context) (common.Frame, error) {
	if err := ctx.Err(); err != nil {
		return common.Frame{}, err
	}

	var bar common.Bar
	var binBar BinaryBar

	if r.idx == invalidIndex {
		if err := r.lookupStartIndex(); err != nil {
			return common.Frame{}, err
		}
	}

	if err := r.source.Read(r.idx, &binBar); err != nil {
		return common.Frame{}, err
	}
	r.idx++

	if binBar.TimeStamp < r.from {
		return common.Frame{}, fmt.Errorf("timestamp is not from the proposed range")
	}

	if binBar.TimeStamp > r.to {
		return common.Frame{}, datasource.ErrEOF
	}

	binBar.ToBar(r.symbol, &bar)

	bar.Source = barReaderComponentName
	bar.TraceID = utility.CreateTraceID()

	return common.Frame{TimeStamp: bar.EndTime(), Bars: []common.Bar{bar}}, nil
}

// Last returns the latest bar ending strictly before t.
func (r *BarReader) Last(t time.Time) (common.Bar, bool) {
	idx, err := r.search(t.UnixNano())
	if err != nil || idx == 0 {
		return common.Bar{}, false
	}

	var binBar BinaryBar
	if err := r.source.Read(idx-1, &binBar); err != nil {
		return common.Bar{}, false
	}

	var bar common.Bar
	binBar.ToBar(r.symbol, &bar)
	bar.Source = barReaderComponentName
	return bar, true
}

func (r *BarReader) lookupStartIndex() error {
	idx, err := r.search(r.from)
	if err != nil {
		return err
	}
	r.idx = idx
	return nil
}

// search returns the index of the first entry with timestamp >= ts.
func (r *BarReader) search(ts int64) (int64, error) {
	entryCount, err := r.source.EntryCount()
	if err != nil {
		return 0, fmt.Errorf("error getting entry count: %w", err)
	}

	if entryCount == 0 {
		return 0, datasource.ErrEOF
	}

	var entry BinaryBar

	low := int64(0)
	high := entryCount - 1

	for low <= high {
		mid := (low + high) / 2

		if err := r.source.Read(mid, &entry); err != nil {
			return 0, fmt.Errorf("error reading entry at index %d: %w", mid, err)
		}

		if entry.TimeStamp < ts {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	return low, nil
}
