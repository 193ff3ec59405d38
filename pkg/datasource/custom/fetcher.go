package custom

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/datasource"
)

const fetcherComponentName = "datasource.custom.fetcher"

var ErrUnexpectedStatus = errors.New("unexpected http status")

// LineSource yields the raw lines behind a subscription source.
type LineSource interface {
	Lines(ctx context.Context, src datasource.SubscriptionSource) ([]string, error)
}

type LineSourceFunc func(ctx context.Context, src datasource.SubscriptionSource) ([]string, error)

func (f LineSourceFunc) Lines(ctx context.Context, src datasource.SubscriptionSource) ([]string, error) {
	return f(ctx, src)
}

type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.Timeout = timeout
	}
}

func WithBreakerSettings(settings BreakerSettings) FetcherOption {
	return func(f *Fetcher) {
		f.settings = settings
	}
}

// Fetcher reads local files directly and remote sources through a circuit breaker.
type Fetcher struct {
	logger   *zap.Logger
	client   *http.Client
	settings BreakerSettings
	breaker  *gobreaker.CircuitBreaker
}

func NewFetcher(logger *zap.Logger, options ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Fetcher{
		logger:   logger,
		client:   &http.Client{Timeout: 10 * time.Second},
		settings: DefaultBreakerSettings(),
	}
	for _, option := range options {
		option(f)
	}

	settings := f.settings
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fetcherComponentName,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			f.logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return f
}

func (f *Fetcher) State() gobreaker.State {
	return f.breaker.State()
}

func (f *Fetcher) Lines(ctx context.Context, src datasource.SubscriptionSource) ([]string, error) {
	if src.Medium == datasource.MediumLocalFile {
		return readFileLines(strings.TrimPrefix(src.URL, "file://"))
	}

	res, err := f.breaker.Execute(func() (interface{}, error) {
		return f.get(ctx, src.URL)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %q: %w", src.URL, err)
	}
	lines, _ := res.([]string)
	return lines, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	f.logger.Debug("fetched custom data source", zap.String("url", url))
	return scanLines(resp.Body)
}

func readFileLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()
	return scanLines(file)
}

func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to scan lines: %w", err)
	}
	return lines, nil
}
