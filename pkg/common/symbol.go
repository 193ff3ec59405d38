package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/peter-kozarec/parity/pkg/utility/fixed"
	"go.uber.org/zap"
)

type SecurityType int

const (
	SecurityTypeBase SecurityType = iota
	SecurityTypeEquity
	SecurityTypeOption
	SecurityTypeFuture
	SecurityTypeFutureOption
	SecurityTypeCrypto
	SecurityTypeIndex
)

func (t SecurityType) String() string {
	switch t {
	case SecurityTypeBase:
		return "base"
	case SecurityTypeEquity:
		return "equity"
	case SecurityTypeOption:
		return "option"
	case SecurityTypeFuture:
		return "future"
	case SecurityTypeFutureOption:
		return "future_option"
	case SecurityTypeCrypto:
		return "crypto"
	case SecurityTypeIndex:
		return "index"
	default:
		return fmt.Sprintf("security_type(%d)", int(t))
	}
}

func ParseSecurityType(s string) (SecurityType, error) {
	for t := SecurityTypeBase; t <= SecurityTypeIndex; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return SecurityTypeBase, fmt.Errorf("unknown security type %q", s)
}

func (t SecurityType) IsDerivative() bool {
	return t == SecurityTypeOption || t == SecurityTypeFuture || t == SecurityTypeFutureOption
}

func (t SecurityType) IsOption() bool {
	return t == SecurityTypeOption || t == SecurityTypeFutureOption
}

type OptionRight int

const (
	OptionRightCall OptionRight = iota
	OptionRightPut
)

func (r OptionRight) String() string {
	if r == OptionRightPut {
		return "P"
	}
	return "C"
}

type OptionStyle int

const (
	OptionStyleAmerican OptionStyle = iota
	OptionStyleEuropean
)

const (
	MarketUSA    = "usa"
	MarketCME    = "cme"
	MarketCBOT   = "cbot"
	MarketNYMEX  = "nymex"
	MarketCOMEX  = "comex"
	MarketICE    = "ice"
	MarketEUREX  = "eurex"
	MarketCustom = "custom"
)

const expiryLayout = "20060102"

// Symbol identifies an instrument. Derivatives with a zero expiry are canonical: they stand for
// the whole chain (options) or the continuous contract (futures).
type Symbol struct {
	Ticker     string       `json:"ticker"`
	Type       SecurityType `json:"type"`
	Market     string       `json:"market"`
	Expiry     time.Time    `json:"expiry,omitempty"`
	Right      OptionRight  `json:"right,omitempty"`
	Strike     fixed.Point  `json:"strike,omitempty"`
	Style      OptionStyle  `json:"style,omitempty"`
	Underlying *Symbol      `json:"underlying,omitempty"`
}

func NewEquity(ticker, market string) Symbol {
	return Symbol{Ticker: ticker, Type: SecurityTypeEquity, Market: market}
}

func NewCustom(ticker string) Symbol {
	return Symbol{Ticker: ticker, Type: SecurityTypeBase, Market: MarketCustom}
}

func NewOption(underlying Symbol) Symbol {
	u := underlying
	return Symbol{Ticker: underlying.Ticker, Type: SecurityTypeOption, Market: underlying.Market, Underlying: &u}
}

func NewOptionContract(underlying Symbol, right OptionRight, strike fixed.Point, expiry time.Time) Symbol {
	s := NewOption(underlying)
	s.Right = right
	s.Strike = strike
	s.Expiry = truncateDay(expiry)
	return s
}

func NewFuture(ticker, market string) Symbol {
	return Symbol{Ticker: ticker, Type: SecurityTypeFuture, Market: market}
}

func NewFutureContract(ticker, market string, expiry time.Time) Symbol {
	return Symbol{Ticker: ticker, Type: SecurityTypeFuture, Market: market, Expiry: truncateDay(expiry)}
}

// NewFutureOption returns the canonical option symbol written on the given future contract.
func NewFutureOption(future Symbol) Symbol {
	u := future
	return Symbol{Ticker: future.Ticker, Type: SecurityTypeFutureOption, Market: future.Market, Underlying: &u}
}

func NewFutureOptionContract(future Symbol, right OptionRight, strike fixed.Point, expiry time.Time) Symbol {
	s := NewFutureOption(future)
	s.Right = right
	s.Strike = strike
	s.Expiry = truncateDay(expiry)
	return s
}

func (s Symbol) IsZero() bool {
	return s.Ticker == ""
}

func (s Symbol) IsCanonical() bool {
	return s.Type.IsDerivative() && s.Expiry.IsZero()
}

func (s Symbol) Canonical() Symbol {
	c := s
	c.Expiry = time.Time{}
	c.Right = OptionRightCall
	c.Strike = fixed.Zero
	return c
}

// ID is the stable map key of a symbol. Two symbols describing the same instrument share it.
func (s Symbol) ID() string {
	var b strings.Builder
	b.WriteString(s.Type.String())
	b.WriteByte(':')
	b.WriteString(s.Market)
	b.WriteByte(':')
	b.WriteString(s.Ticker)
	if !s.Expiry.IsZero() {
		b.WriteByte(':')
		b.WriteString(s.Expiry.Format(expiryLayout))
		if s.Type.IsOption() {
			b.WriteByte(':')
			b.WriteString(s.Right.String())
			b.WriteString(s.Strike.String())
		}
	}
	if s.Type == SecurityTypeFutureOption && s.Underlying != nil && !s.Underlying.Expiry.IsZero() {
		b.WriteByte('@')
		b.WriteString(s.Underlying.Expiry.Format(expiryLayout))
	}
	return b.String()
}

func (s Symbol) Equal(other Symbol) bool {
	return s.ID() == other.ID()
}

func (s Symbol) String() string {
	if s.Expiry.IsZero() {
		if s.IsCanonical() && s.Type.IsOption() {
			return "?" + s.Ticker
		}
		if s.IsCanonical() {
			return "/" + s.Ticker
		}
		return s.Ticker
	}
	if s.Type.IsOption() {
		return fmt.Sprintf("%s %s%s%s", s.Ticker, s.Expiry.Format("060102"), s.Right, s.Strike)
	}
	return fmt.Sprintf("%s %s", s.Ticker, s.Expiry.Format("060102"))
}

func (s Symbol) Fields() []zap.Field {
	return []zap.Field{
		zap.String("symbol", s.String()),
		zap.String("symbol_id", s.ID()),
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ThirdFriday is the standard monthly expiry date of listed derivatives.
func ThirdFriday(year int, month time.Month) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 14)
}
