package duckdb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/datasource/custom"
)

// Provider serves frames from one bar table. Option rows become quotes of their chain.
type Provider struct {
	reader *Reader
	table  string
	logger *zap.Logger
	lines  custom.LineSource
}

func NewProvider(reader *Reader, table string, logger *zap.Logger, lines custom.LineSource) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{reader: reader, table: table, logger: logger, lines: lines}
}

func (p *Provider) Open(ctx context.Context, req datasource.Request) (datasource.Feed, error) {
	var market []datasource.Subscription
	var feeds []datasource.Feed
	for _, sub := range req.Subscriptions {
		if !sub.IsCustom() {
			market = append(market, sub)
			continue
		}
		if p.lines != nil {
			feeds = append(feeds, custom.NewFeed(sub, p.lines, req.Start, req.End, req.Live))
		}
	}

	var frames []common.Frame
	rows := 0
	err := p.reader.LoadBars(ctx, p.table, req.Start, req.Until(), func(bar common.Bar) error {
		if !accepts(market, bar.Symbol) {
			return nil
		}
		rows++

		end := bar.EndTime()
		if len(frames) == 0 || !frames[len(frames)-1].TimeStamp.Equal(end) {
			frames = append(frames, common.Frame{TimeStamp: end})
		}
		frame := &frames[len(frames)-1]
		if bar.Symbol.Type.IsOption() {
			frame.Quotes = append(frame.Quotes, quoteOf(bar))
		} else {
			frame.Bars = append(frame.Bars, bar)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("duckdb bars loaded",
		zap.String("src", readerComponentName),
		zap.String("table", p.table),
		zap.Int("rows", rows),
		zap.Int("frames", len(frames)))

	return datasource.Merge(append([]datasource.Feed{datasource.NewFrameFeed(frames...)}, feeds...)...), nil
}

func (p *Provider) LastKnown(ctx context.Context, sub datasource.Subscription, before time.Time) []common.Bar {
	if sub.IsCustom() {
		if p.lines == nil {
			return nil
		}
		from := before.AddDate(0, -1, 0)
		return custom.NewFeed(sub, p.lines, from, before, false).LastKnown(ctx, before)
	}

	bar, ok, err := p.reader.LastBar(ctx, p.table, sub.Symbol, before)
	if err != nil {
		p.logger.Warn("unable to load last known bar", append(sub.Symbol.Fields(), zap.Error(err))...)
		return nil
	}
	if !ok {
		return nil
	}
	return []common.Bar{bar}
}

func (p *Provider) OptionContracts(underlying common.Symbol, date time.Time) []common.Symbol {
	if underlying.Type.IsOption() && underlying.Underlying != nil {
		underlying = *underlying.Underlying
	}
	contracts, err := p.reader.OptionContracts(context.Background(), p.table, underlying, date)
	if err != nil {
		p.logger.Warn("unable to list option contracts", append(underlying.Fields(), zap.Error(err))...)
		return nil
	}
	return contracts
}

func accepts(subs []datasource.Subscription, sym common.Symbol) bool {
	for _, sub := range subs {
		want := sub.Symbol
		if want.Equal(sym) {
			return true
		}
		if !want.IsCanonical() || want.Type != sym.Type {
			continue
		}
		switch want.Type {
		case common.SecurityTypeFuture:
			if want.Ticker == sym.Ticker && want.Market == sym.Market {
				return true
			}
		case common.SecurityTypeOption, common.SecurityTypeFutureOption:
			if want.Underlying != nil && sym.Underlying != nil && want.Underlying.Equal(*sym.Underlying) {
				return true
			}
		}
	}
	return false
}

func quoteOf(bar common.Bar) common.OptionContract {
	return common.OptionContract{
		Symbol:       bar.Symbol,
		TimeStamp:    bar.EndTime(),
		Bid:          bar.Close,
		Ask:          bar.Close,
		Last:         bar.Close,
		Volume:       bar.Volume,
		OpenInterest: bar.OpenInterest,
	}
}
