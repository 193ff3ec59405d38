package synthetic

import (
	"context"
	"maps"
	"math"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/utility"
)

// series is a geometric brownian motion of one underlying. The first step keeps the start price.
type series struct {
	rng     *rand.Rand
	sigma   float64
	open    float64
	close   float64
	z       float64
	started bool
}

func (s *series) advance(dt float64) {
	if !s.started {
		s.started = true
		return
	}
	s.z = s.rng.NormFloat64()
	s.open = s.close
	s.close = s.open * math.Exp(-0.5*s.sigma*s.sigma*dt+s.sigma*math.Sqrt(dt)*s.z)
}

func (s *series) bar(sym common.Symbol, end time.Time, period time.Duration, factor float64) common.Bar {
	o, c := s.open*factor, s.close*factor
	return common.Bar{
		Source:    generatorComponentName,
		Symbol:    sym,
		TraceID:   utility.CreateTraceID(),
		TimeStamp: end.Add(-period),
		Period:    period,
		Open:      toPoint(o, 2),
		High:      toPoint(max(o, c)*1.001, 2),
		Low:       toPoint(min(o, c)*0.999, 2),
		Close:     toPoint(c, 2),
		Volume:    toPoint(1000*(1+math.Abs(s.z)), 0),
	}
}

type marketFeed struct {
	times  []time.Time
	period time.Duration
	dt     float64
	idx    int

	series map[string]*series

	equities              []common.Symbol
	futures               []common.Symbol
	futureContracts       []common.Symbol
	options               []common.Symbol
	optionContracts       []common.Symbol
	futureOptions         []common.Symbol
	futureOptionContracts []common.Symbol
}

func newMarketFeed(g *Generator, req datasource.Request) *marketFeed {
	f := &marketFeed{series: make(map[string]*series)}

	intraday := false
	for _, sub := range req.Subscriptions {
		if sub.IsCustom() {
			continue
		}
		if sub.Resolution > 0 && sub.Resolution < 24*time.Hour {
			intraday = true
		}

		sym := sub.Symbol
		root := sym
		for root.Underlying != nil {
			root = *root.Underlying
		}
		f.track(g, root)

		switch sym.Type {
		case common.SecurityTypeEquity:
			f.equities = append(f.equities, sym)
		case common.SecurityTypeFuture:
			if sym.IsCanonical() {
				f.futures = append(f.futures, sym)
			} else {
				f.futureContracts = append(f.futureContracts, sym)
			}
		case common.SecurityTypeOption:
			if sym.IsCanonical() {
				f.options = append(f.options, sym)
			} else {
				f.optionContracts = append(f.optionContracts, sym)
			}
		case common.SecurityTypeFutureOption:
			if sym.IsCanonical() {
				f.futureOptions = append(f.futureOptions, sym)
			} else {
				f.futureOptionContracts = append(f.futureOptionContracts, sym)
			}
		}
	}
	if len(f.series) == 0 {
		return f
	}

	f.period, f.dt = 24*time.Hour, 1.0/252
	if intraday {
		f.period, f.dt = time.Hour, 1.0/(252*(sessionEndHour-sessionOpenHour+1))
	}

	for day := truncateDay(req.Start); !day.After(truncateDay(req.End)); day = day.AddDate(0, 0, 1) {
		if !isTradingDay(day) {
			continue
		}
		if !intraday {
			f.times = append(f.times, day.Add(sessionEndHour*time.Hour))
			continue
		}
		for h := sessionOpenHour; h <= sessionEndHour; h++ {
			f.times = append(f.times, day.Add(time.Duration(h)*time.Hour))
		}
	}
	return f
}

func seriesKey(sym common.Symbol) string {
	return strings.Join([]string{sym.Market, sym.Ticker}, ":")
}

func (f *marketFeed) track(g *Generator, root common.Symbol) {
	key := seriesKey(root)
	if _, ok := f.series[key]; ok {
		return
	}
	p := profileOf(root.Ticker)
	f.series[key] = &series{rng: g.rng(key), sigma: p.sigma, open: p.price, close: p.price}
}

func (f *marketFeed) Next(ctx context.Context) (common.Frame, error) {
	if err := ctx.Err(); err != nil {
		return common.Frame{}, err
	}
	if f.idx >= len(f.times) {
		return common.Frame{}, datasource.ErrEOF
	}
	ts := f.times[f.idx]
	f.idx++

	for _, s := range f.series {
		s.advance(f.dt)
	}

	bars := make(map[string]common.Bar)
	for _, sym := range f.equities {
		bars[sym.ID()] = f.series[seriesKey(sym)].bar(sym, ts, f.period, 1)
	}
	for _, sym := range f.futures {
		for _, contract := range listedContracts(sym.Ticker, sym.Market, ts) {
			bars[contract.ID()] = f.futureBar(contract, ts)
		}
	}
	for _, sym := range f.futureContracts {
		if !sym.Expiry.Before(truncateDay(ts)) {
			bars[sym.ID()] = f.futureBar(sym, ts)
		}
	}

	quotes := make(map[string]common.OptionContract)
	for _, canonical := range slices.Concat(f.options, f.futureOptions) {
		underlying := *canonical.Underlying
		price := f.underlyingPrice(underlying, ts)
		for _, c := range optionGrid(underlying, ts) {
			quotes[c.symbol.ID()] = optionQuote(c, ts, price)
		}
	}
	for _, sym := range slices.Concat(f.optionContracts, f.futureOptionContracts) {
		underlying := *sym.Underlying
		if c, ok := gridContractOf(sym, ts); ok {
			quotes[sym.ID()] = optionQuote(c, ts, f.underlyingPrice(underlying, ts))
		}
	}

	frame := common.Frame{TimeStamp: ts}
	for _, id := range slices.Sorted(maps.Keys(bars)) {
		frame.Bars = append(frame.Bars, bars[id])
	}
	for _, id := range slices.Sorted(maps.Keys(quotes)) {
		frame.Quotes = append(frame.Quotes, quotes[id])
	}
	return frame, nil
}

func (f *marketFeed) futureBar(contract common.Symbol, ts time.Time) common.Bar {
	b := f.series[seriesKey(contract)].bar(contract, ts, f.period, basis(ts, contract.Expiry))
	b.OpenInterest = toPoint(openInterest(profileOf(contract.Ticker).peakOI, daysBetween(ts, contract.Expiry)), 0)
	return b
}

func (f *marketFeed) underlyingPrice(underlying common.Symbol, ts time.Time) float64 {
	price := f.series[seriesKey(underlying)].close
	if underlying.Type == common.SecurityTypeFuture && !underlying.IsCanonical() {
		price *= basis(ts, underlying.Expiry)
	}
	return price
}

func gridContractOf(sym common.Symbol, ts time.Time) (gridContract, bool) {
	id := sym.ID()
	for _, c := range optionGrid(*sym.Underlying, ts) {
		if c.symbol.ID() == id {
			return c, true
		}
	}
	if sym.Expiry.Before(truncateDay(ts)) {
		return gridContract{}, false
	}
	return gridContract{symbol: sym, iv: 0.3, oi: 50}, true
}

func optionQuote(c gridContract, ts time.Time, underlyingPrice float64) common.OptionContract {
	strike, _ := c.symbol.Strike.Float64()
	days := max(daysBetween(ts, c.symbol.Expiry), 1)
	q := blackScholes(underlyingPrice, strike, float64(days)/365, c.iv, c.symbol.Right == common.OptionRightCall)

	spread := max(0.05, 0.02*q.price)
	return common.OptionContract{
		Symbol:            c.symbol,
		TimeStamp:         ts,
		UnderlyingPrice:   toPoint(underlyingPrice, 2),
		Bid:               toPoint(max(q.price-spread/2, 0), 2),
		Ask:               toPoint(q.price+spread/2, 2),
		Last:              toPoint(q.price, 2),
		Volume:            toPoint(c.oi/10, 0),
		OpenInterest:      toPoint(c.oi, 0),
		ImpliedVolatility: toPoint(c.iv, 4),
		Greeks: common.Greeks{
			Delta: toPoint(q.delta, 6),
			Gamma: toPoint(q.gamma, 6),
			Vega:  toPoint(q.vega, 6),
			Theta: toPoint(q.theta, 6),
			Rho:   toPoint(q.rho, 6),
		},
	}
}
