package synthetic

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/datasource/custom"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

const (
	generatorComponentName = "datasource.synthetic.generator"

	customLookback  = 30 * 24 * time.Hour
	sessionOpenHour = 10
	sessionEndHour  = 16
)

type Option func(*Generator)

func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithCustomLines replaces the generated custom data lines, e.g. with a Fetcher.
func WithCustomLines(lines custom.LineSource) Option {
	return func(g *Generator) {
		g.lines = lines
	}
}

// Generator is a deterministic data provider. Equal seeds and requests produce equal frames.
type Generator struct {
	seed   int64
	logger *zap.Logger
	lines  custom.LineSource
}

func NewGenerator(seed int64, options ...Option) *Generator {
	g := &Generator{seed: seed, logger: zap.NewNop()}
	for _, option := range options {
		option(g)
	}
	return g
}

func (g *Generator) Open(_ context.Context, req datasource.Request) (datasource.Feed, error) {
	feeds := []datasource.Feed{newMarketFeed(g, req)}
	for _, sub := range req.Subscriptions {
		if !sub.IsCustom() {
			continue
		}
		feeds = append(feeds, custom.NewFeed(sub, g.customLines(req.Start.Add(-customLookback), req.End), req.Start, req.End, req.Live))
	}

	g.logger.Info("synthetic feed opened",
		zap.String("src", generatorComponentName),
		zap.Time("start", req.Start),
		zap.Time("end", req.End),
		zap.Int("subscriptions", len(req.Subscriptions)))

	return datasource.Merge(feeds...), nil
}

func (g *Generator) LastKnown(ctx context.Context, sub datasource.Subscription, before time.Time) []common.Bar {
	if sub.IsCustom() {
		from := before.Add(-customLookback)
		return custom.NewFeed(sub, g.customLines(from, before), from, before, false).LastKnown(ctx, before)
	}

	sym := sub.Symbol
	if sym.IsCanonical() || sym.Type.IsOption() {
		return nil
	}

	day := truncateDay(before).AddDate(0, 0, -1)
	for !isTradingDay(day) {
		day = day.AddDate(0, 0, -1)
	}
	ts := day.Add(sessionEndHour * time.Hour)
	price := profileOf(sym.Ticker).price
	if sym.Type == common.SecurityTypeFuture {
		price *= basis(day, sym.Expiry)
	}
	return []common.Bar{flatBar(sym, ts, 24*time.Hour, price)}
}

// OptionContracts lists the contracts written on an equity or a future contract on date.
func (g *Generator) OptionContracts(underlying common.Symbol, date time.Time) []common.Symbol {
	if underlying.Type.IsOption() && underlying.Underlying != nil {
		underlying = *underlying.Underlying
	}

	var out []common.Symbol
	for _, c := range optionGrid(underlying, date) {
		out = append(out, c.symbol)
	}
	return out
}

func (g *Generator) customLines(from, to time.Time) custom.LineSource {
	if g.lines != nil {
		return g.lines
	}
	return NewBitcoinLines(g.seed, from, to)
}

func (g *Generator) rng(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return rand.New(rand.NewSource(g.seed ^ int64(h.Sum64()))) // #nosec G404
}

type gridContract struct {
	symbol common.Symbol
	iv     float64
	oi     float64
}

// optionGrid spans strikes from 70% to 130% of the reference price. Equity options get the
// coming monthly expiries, future options expire with their future.
func optionGrid(underlying common.Symbol, date time.Time) []gridContract {
	ref := profileOf(underlying.Ticker).price
	step := strikeStep(ref)
	lo := math.Floor(ref*0.7/step) * step
	hi := math.Ceil(ref*1.3/step) * step

	var expiries []time.Time
	switch underlying.Type {
	case common.SecurityTypeEquity:
		expiries = optionExpiries(date)
	case common.SecurityTypeFuture:
		if underlying.IsCanonical() || underlying.Expiry.Before(truncateDay(date)) {
			return nil
		}
		expiries = []time.Time{underlying.Expiry}
	default:
		return nil
	}

	var out []gridContract
	for ei, expiry := range expiries {
		ki := 0
		for k := lo; k <= hi+1e-9; k += step {
			strike := toPoint(k, 2)
			iv := 0.3 + 0.2*float64((ki*3+ei*5)%8)
			oi := float64(50 + (ki*37+ei*91)%600)
			for _, right := range []common.OptionRight{common.OptionRightCall, common.OptionRightPut} {
				var sym common.Symbol
				if underlying.Type == common.SecurityTypeFuture {
					sym = common.NewFutureOptionContract(underlying, right, strike, expiry)
				} else {
					sym = common.NewOptionContract(underlying, right, strike, expiry)
				}
				out = append(out, gridContract{symbol: sym, iv: iv, oi: oi})
			}
			ki++
		}
	}
	return out
}

// basis is the futures premium over spot for a contract expiring later.
func basis(date, expiry time.Time) float64 {
	return 1 + 0.002*float64(max(daysBetween(date, expiry), 0))/30
}

func toPoint(x float64, scale int) fixed.Point {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fixed.Zero.Rescale(scale)
	}
	pow := math.Pow10(scale)
	return fixed.FromFloat64(math.Round(x*pow) / pow).Rescale(scale)
}

func flatBar(sym common.Symbol, end time.Time, period time.Duration, price float64) common.Bar {
	p := toPoint(price, 2)
	return common.Bar{
		Source:    generatorComponentName,
		Symbol:    sym,
		TimeStamp: end.Add(-period),
		Period:    period,
		Open:      p,
		High:      p,
		Low:       p,
		Close:     p,
		Volume:    fixed.Zero,
	}
}

