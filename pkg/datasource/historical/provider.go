package historical

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/datasource/custom"
)

const (
	providerComponentName = "datasource.historical.provider"
	fileExtension         = ".bin"
	expiryLayout          = "20060102"
)

// Provider serves bars from a directory of binary files laid out as
//
//	<dir>/<market>/<ticker>.bin               equities and other spot symbols
//	<dir>/<market>/<ticker>/<yyyymmdd>.bin    future contracts by expiry
type Provider struct {
	dir    string
	logger *zap.Logger
	lines  custom.LineSource

	mu      sync.Mutex
	sources []*Source[BinaryBar]
}

func NewProvider(dir string, logger *zap.Logger, lines custom.LineSource) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{dir: dir, logger: logger, lines: lines}
}

func (p *Provider) Path(symbol common.Symbol) string {
	if symbol.Type == common.SecurityTypeFuture && !symbol.IsCanonical() {
		return filepath.Join(p.dir, symbol.Market, symbol.Ticker, symbol.Expiry.Format(expiryLayout)+fileExtension)
	}
	return filepath.Join(p.dir, symbol.Market, symbol.Ticker+fileExtension)
}

// Write appends bars to the files of their symbols.
func (p *Provider) Write(bars []common.Bar) error {
	grouped := make(map[string][]BinaryBar)
	for _, bar := range bars {
		path := p.Path(bar.Symbol)
		grouped[path] = append(grouped[path], NewBinaryBar(bar))
	}
	for path, records := range grouped {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("unable to create %q: %w", filepath.Dir(path), err)
		}
		if err := Append(path, records); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) Open(_ context.Context, req datasource.Request) (datasource.Feed, error) {
	var feeds []datasource.Feed
	for _, sub := range req.Subscriptions {
		if sub.IsCustom() {
			if p.lines != nil {
				feeds = append(feeds, custom.NewFeed(sub, p.lines, req.Start, req.End, req.Live))
			}
			continue
		}

		symbols, err := p.expand(sub.Symbol)
		if err != nil {
			return nil, err
		}
		for _, symbol := range symbols {
			source, err := p.open(symbol)
			if errors.Is(err, os.ErrNotExist) {
				p.logger.Warn("no binary data for symbol", append(symbol.Fields(), zap.String("src", providerComponentName))...)
				continue
			}
			if err != nil {
				return nil, err
			}
			feeds = append(feeds, NewBarReader(source, symbol, req.Start, req.Until()))
		}
	}

	if len(feeds) == 0 {
		return datasource.NewFrameFeed(), nil
	}
	return datasource.Merge(feeds...), nil
}

func (p *Provider) LastKnown(ctx context.Context, sub datasource.Subscription, before time.Time) []common.Bar {
	if sub.IsCustom() {
		if p.lines == nil {
			return nil
		}
		from := before.AddDate(0, -1, 0)
		return custom.NewFeed(sub, p.lines, from, before, false).LastKnown(ctx, before)
	}
	if sub.Symbol.IsCanonical() {
		return nil
	}

	source, err := p.open(sub.Symbol)
	if err != nil {
		return nil
	}
	bar, ok := NewBarReader(source, sub.Symbol, before, before).Last(before)
	if !ok {
		return nil
	}
	return []common.Bar{bar}
}

// OptionContracts is empty: binary files carry no option quotes.
func (p *Provider) OptionContracts(common.Symbol, time.Time) []common.Symbol {
	return nil
}

func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, source := range p.sources {
		source.Close()
	}
	p.sources = nil
}

func (p *Provider) expand(symbol common.Symbol) ([]common.Symbol, error) {
	if symbol.Type.IsOption() {
		return nil, nil
	}
	if !symbol.IsCanonical() {
		return []common.Symbol{symbol}, nil
	}

	entries, err := os.ReadDir(filepath.Join(p.dir, symbol.Market, symbol.Ticker))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to list contracts of %s: %w", symbol, err)
	}

	var out []common.Symbol
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		expiry, err := time.Parse(expiryLayout, strings.TrimSuffix(name, fileExtension))
		if err != nil {
			continue
		}
		out = append(out, common.NewFutureContract(symbol.Ticker, symbol.Market, expiry))
	}
	return out, nil
}

func (p *Provider) open(symbol common.Symbol) (*Source[BinaryBar], error) {
	path := p.Path(symbol)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	source := NewSource[BinaryBar](path)
	if err := source.Open(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.sources = append(p.sources, source)
	p.mu.Unlock()
	return source, nil
}
