package synthetic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/datasource/custom"
	"github.com/peter-kozarec/parity/pkg/mapping"
	"github.com/peter-kozarec/parity/pkg/universe"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func collect(t *testing.T, feed datasource.Feed) []common.Frame {
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

func open(t *testing.T, g *Generator, start, end time.Time, subs ...datasource.Subscription) []common.Frame {
	t.Helper()
	feed, err := g.Open(context.Background(), datasource.Request{Start: start, End: end, Subscriptions: subs})
	require.NoError(t, err)
	return collect(t, feed)
}

func TestGenerator_EquityFrames(t *testing.T) {
	spy := common.NewEquity("SPY", common.MarketUSA)

	t.Run("daily skips weekends", func(t *testing.T) {
		frames := open(t, NewGenerator(1), date(2015, 12, 24), date(2015, 12, 28), datasource.Subscription{Symbol: spy, Resolution: 24 * time.Hour})
		require.Len(t, frames, 3)
		assert.Equal(t, "205.68", frames[0].Bars[0].Close.String())
	})

	t.Run("hourly session", func(t *testing.T) {
		frames := open(t, NewGenerator(1), date(2015, 12, 24), date(2015, 12, 28), datasource.Subscription{Symbol: spy, Resolution: time.Hour})
		assert.Len(t, frames, 3*7)
		assert.Equal(t, 10, frames[0].TimeStamp.Hour())
		assert.Equal(t, time.Hour, frames[0].Bars[0].Period)
	})

	t.Run("deterministic per seed", func(t *testing.T) {
		sub := datasource.Subscription{Symbol: spy, Resolution: 24 * time.Hour}
		a := open(t, NewGenerator(7), date(2016, 1, 4), date(2016, 1, 29), sub)
		b := open(t, NewGenerator(7), date(2016, 1, 4), date(2016, 1, 29), sub)
		c := open(t, NewGenerator(8), date(2016, 1, 4), date(2016, 1, 29), sub)
		require.Equal(t, len(a), len(b))
		last := len(a) - 1
		assert.True(t, a[last].Bars[0].Close.Eq(b[last].Bars[0].Close))
		assert.False(t, a[last].Bars[0].Close.Eq(c[last].Bars[0].Close))
	})
}

func TestGenerator_OptionGreeksUniverse(t *testing.T) {
	goog := common.NewEquity("GOOG", common.MarketUSA)
	frames := open(t, NewGenerator(1), date(2015, 12, 24), date(2015, 12, 24),
		datasource.Subscription{Symbol: goog, Resolution: 24 * time.Hour},
		datasource.Subscription{Symbol: common.NewOption(goog), Resolution: 24 * time.Hour})
	require.Len(t, frames, 1)
	require.NotEmpty(t, frames[0].Quotes)

	filter := universe.NewOptionFilter().
		Delta(0.5, 1.5).
		Gamma(0.0001, 0.0006).
		Vega(0.01, 1.5).
		Theta(-2, -0.5).
		Rho(0.5, 3).
		ImpliedVolatility(1, 3).
		OpenInterest(100, 500)

	selected := filter.Apply(fixed.MustParse("748.40"), frames[0].TimeStamp, frames[0].Quotes)
	assert.NotEmpty(t, selected)
	for _, c := range selected {
		assert.Equal(t, common.OptionRightCall, c.Symbol.Right)
		assert.True(t, c.Bid.Lte(c.Ask))
	}
}

func TestGenerator_FuturesRollByOpenInterest(t *testing.T) {
	es := common.NewFuture("ES", common.MarketCME)
	frames := open(t, NewGenerator(1), date(2013, 7, 1), date(2014, 1, 1), datasource.Subscription{Symbol: es, Resolution: 24 * time.Hour})
	require.NotEmpty(t, frames)

	mapper := mapping.NewMapper(es, mapping.MappingModeOpenInterest, 1)
	var events []common.SymbolChangedEvent
	for _, frame := range frames {
		if ev, ok := mapper.Update(frame.TimeStamp, frame.Bars); ok {
			events = append(events, ev)
		}
	}
	require.Len(t, events, 2)
	assert.Equal(t, time.September, events[0].TimeStamp.Month())
	assert.Equal(t, date(2014, 3, 21), events[0].NewSymbol.Expiry)
	assert.Equal(t, date(2014, 6, 20), events[1].NewSymbol.Expiry)
}

func TestGenerator_FirstDayMonthMappings(t *testing.T) {
	fesx := common.NewFuture("FESX", common.MarketEUREX)
	frames := open(t, NewGenerator(1), date(2023, 1, 1), date(2024, 8, 5), datasource.Subscription{Symbol: fesx, Resolution: 24 * time.Hour})

	mapper := mapping.NewMapper(fesx, mapping.MappingModeFirstDayMonth, 0)
	count := 0
	for _, frame := range frames {
		if _, ok := mapper.Update(frame.TimeStamp, frame.Bars); ok {
			count++
		}
	}
	assert.Equal(t, 6, count)
}

func TestGenerator_OptionContracts(t *testing.T) {
	g := NewGenerator(1)

	dc := common.NewFutureContract("DC", common.MarketCME, date(2012, 4, 1))
	contracts := g.OptionContracts(dc, date(2012, 1, 3))
	require.NotEmpty(t, contracts)
	assert.Equal(t, common.SecurityTypeFutureOption, contracts[0].Type)
	assert.Equal(t, dc.Expiry, contracts[0].Expiry)
	assert.True(t, contracts[0].Underlying.Equal(dc))

	spy := common.NewEquity("SPY", common.MarketUSA)
	assert.Equal(t, g.OptionContracts(spy, date(2015, 12, 24)), g.OptionContracts(common.NewOption(spy), date(2015, 12, 24)))
	assert.Empty(t, g.OptionContracts(common.NewFuture("ES", common.MarketCME), date(2015, 12, 24)))
}

func TestGenerator_LastKnown(t *testing.T) {
	g := NewGenerator(1)
	ctx := context.Background()

	bars := g.LastKnown(ctx, datasource.Subscription{Symbol: common.NewEquity("GOOG", common.MarketUSA)}, date(2015, 12, 28))
	require.Len(t, bars, 1)
	assert.Equal(t, "748.40", bars[0].Close.String())
	assert.Equal(t, time.Friday, bars[0].EndTime().Weekday())

	btc := datasource.Subscription{Symbol: common.NewCustom("BTC"), Resolution: 24 * time.Hour, Custom: custom.Bitcoin{}}
	seed := g.LastKnown(ctx, btc, date(2020, 1, 5))
	require.Len(t, seed, 1)
	assert.False(t, seed[0].Close.IsZero())

	assert.Empty(t, g.LastKnown(ctx, datasource.Subscription{Symbol: common.NewFuture("ES", common.MarketCME)}, date(2015, 12, 28)))
}

func TestGenerator_CustomFrames(t *testing.T) {
	btc := datasource.Subscription{Symbol: common.NewCustom("BTC"), Resolution: 24 * time.Hour, Custom: custom.Bitcoin{}}
	frames := open(t, NewGenerator(1), date(2020, 1, 5), date(2020, 1, 10), btc)
	require.Len(t, frames, 6)
	for i, frame := range frames {
		require.Len(t, frame.Custom, 1)
		assert.Equal(t, date(2020, 1, 6+i), frame.TimeStamp)
	}
}

func TestBlackScholes_PutCallParity(t *testing.T) {
	call := blackScholes(100, 95, 0.5, 0.3, true)
	put := blackScholes(100, 95, 0.5, 0.3, false)
	parity := call.price - put.price - (100 - 95*0.9950124791926823)
	assert.InDelta(t, 0, parity, 1e-9)
	assert.InDelta(t, 1, call.delta-put.delta, 1e-12)
}
