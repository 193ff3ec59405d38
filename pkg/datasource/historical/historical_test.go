package historical

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

func dailyBars(symbol common.Symbol, first time.Time, closes ...int) []common.Bar {
	bars := make([]common.Bar, 0, len(closes))
	for i, c := range closes {
		end := first.AddDate(0, 0, i)
		p := fixed.FromInt(c, 0)
		bars = append(bars, common.Bar{
			Symbol:       symbol,
			TimeStamp:    end.Add(-24 * time.Hour),
			Period:       24 * time.Hour,
			Open:         p,
			High:         p,
			Low:          p,
			Close:        p,
			Volume:       fixed.Ten,
			OpenInterest: fixed.FromInt(c*10, 0),
		})
	}
	return bars
}

func drain(t *testing.T, feed datasource.Feed) []common.Frame {
	t.Helper()
	var frames []common.Frame
	for {
		frame, err := feed.Next(context.Background())
		if errors.Is(err, datasource.ErrEOF) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, frame)
	}
}

func TestBarReader(t *testing.T) {
	spy := common.NewEquity("SPY", common.MarketUSA)
	first := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)
	p := NewProvider(t.TempDir(), zaptest.NewLogger(t), nil)
	defer p.Close()
	require.NoError(t, p.Write(dailyBars(spy, first, 10, 11, 12, 13, 14)))

	source := NewSource[BinaryBar](p.Path(spy))
	require.NoError(t, source.Open())
	defer source.Close()

	count, err := source.EntryCount()
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	tests := []struct {
		name   string
		from   time.Time
		to     time.Time
		closes []string
	}{
		{"whole range", first, first.AddDate(0, 0, 10), []string{"10", "11", "12", "13", "14"}},
		{"middle", first.AddDate(0, 0, 1), first.AddDate(0, 0, 2), []string{"11", "12"}},
		{"after data", first.AddDate(0, 0, 7), first.AddDate(0, 0, 9), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var closes []string
			for _, frame := range drain(t, NewBarReader(source, spy, tt.from, tt.to)) {
				closes = append(closes, frame.Bars[0].Close.String())
				assert.Equal(t, frame.TimeStamp, frame.Bars[0].EndTime())
			}
			assert.Equal(t, tt.closes, closes)
		})
	}

	last, ok := NewBarReader(source, spy, first, first).Last(first.AddDate(0, 0, 2))
	require.True(t, ok)
	assert.Equal(t, "11", last.Close.String())

	_, ok = NewBarReader(source, spy, first, first).Last(first)
	assert.False(t, ok)
}

func TestProvider_ContinuousFuture(t *testing.T) {
	first := time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)
	march := common.NewFutureContract("ES", common.MarketCME, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	june := common.NewFutureContract("ES", common.MarketCME, time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC))

	p := NewProvider(t.TempDir(), zaptest.NewLogger(t), nil)
	defer p.Close()
	require.NoError(t, p.Write(append(dailyBars(march, first, 100, 101), dailyBars(june, first, 102, 103)...)))

	feed, err := p.Open(context.Background(), datasource.Request{
		Start: first,
		End:   first.AddDate(0, 0, 5),
		Subscriptions: []datasource.Subscription{
			{Symbol: common.NewFuture("ES", common.MarketCME)},
			{Symbol: common.NewEquity("MISSING", common.MarketUSA)},
		},
	})
	require.NoError(t, err)

	frames := drain(t, feed)
	require.Len(t, frames, 2)
	assert.Len(t, frames[0].Bars, 2)
	assert.Equal(t, "1000", frames[0].Bars[0].OpenInterest.String())

	seed := p.LastKnown(context.Background(), datasource.Subscription{Symbol: june}, first.AddDate(0, 0, 5))
	require.Len(t, seed, 1)
	assert.Equal(t, "103", seed[0].Close.String())
	assert.Empty(t, p.OptionContracts(june, first))
}
