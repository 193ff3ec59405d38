package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
)

var ErrEOF = errors.New("EOF")

type TransportMedium int

const (
	MediumRemoteFile TransportMedium = iota
	MediumLocalFile
	MediumRest
)

func (m TransportMedium) String() string {
	switch m {
	case MediumLocalFile:
		return "local_file"
	case MediumRest:
		return "rest"
	default:
		return "remote_file"
	}
}

// SubscriptionSource tells where the lines of a custom data type come from. Sort asks the reader
// to order parsed records by time, for files written newest first.
type SubscriptionSource struct {
	URL    string
	Medium TransportMedium
	Sort   bool
}

// CustomType is a user defined data type: it names its source for a date and parses one line of
// it. A line that cannot be parsed yields the empty record.
type CustomType interface {
	Source(date time.Time, live bool) SubscriptionSource
	Reader(symbol common.Symbol, line string, date time.Time, live bool) common.CustomData
}

type Subscription struct {
	Symbol     common.Symbol
	Resolution time.Duration
	Custom     CustomType
}

func (s Subscription) IsCustom() bool {
	return s.Custom != nil
}

type Request struct {
	Start         time.Time
	End           time.Time
	Live          bool
	Subscriptions []Subscription
}

// Until is the last instant of the end day. Requests are inclusive of their end date.
func (r Request) Until() time.Time {
	y, m, d := r.End.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.End.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

type Feed interface {
	Next(ctx context.Context) (common.Frame, error)
}

type HistoryProvider interface {
	LastKnown(ctx context.Context, sub Subscription, before time.Time) []common.Bar
}

type ChainProvider interface {
	OptionContracts(underlying common.Symbol, date time.Time) []common.Symbol
}

// Provider is everything an engine needs from a data backend.
type Provider interface {
	HistoryProvider
	ChainProvider
	Open(ctx context.Context, req Request) (Feed, error)
}

type FrameHandler func(context.Context, common.Frame) error

// CreateFrameDispatcher reads one frame per call and hands it over. It returns ErrEOF once the
// feed is exhausted.
func CreateFrameDispatcher(feed Feed, handle FrameHandler) func(context.Context) error {
	return func(ctx context.Context) error {
		frame, err := feed.Next(ctx)
		if err != nil {
			return err
		}
		return handle(ctx, frame)
	}
}
