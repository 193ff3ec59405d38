package universe

import (
	"slices"
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

type FilterFunc func(*OptionFilter) *OptionFilter

type bounds struct {
	min, max fixed.Point
}

func (b *bounds) contains(v fixed.Point) bool {
	return b == nil || v.Between(b.min, b.max)
}

type rightFilter int

const (
	rightsAll rightFilter = iota
	rightsCalls
	rightsPuts
)

// OptionFilter selects the contracts of an option chain that make it into the universe.
// Without any constraint every contract passes.
type OptionFilter struct {
	strikes    *[2]int
	expiration *[2]int

	delta             *bounds
	gamma             *bounds
	vega              *bounds
	theta             *bounds
	rho               *bounds
	impliedVolatility *bounds
	openInterest      *bounds

	rights rightFilter
}

func NewOptionFilter() *OptionFilter {
	return &OptionFilter{}
}

// Strikes keeps strikes ranked between min and max around the strike closest to the underlying
// price, so Strikes(-2, 2) keeps five strikes.
func (f *OptionFilter) Strikes(min, max int) *OptionFilter {
	f.strikes = &[2]int{min, max}
	return f
}

// Expiration keeps contracts expiring between min and max calendar days from now, inclusive.
func (f *OptionFilter) Expiration(minDays, maxDays int) *OptionFilter {
	f.expiration = &[2]int{minDays, maxDays}
	return f
}

func (f *OptionFilter) Delta(min, max float64) *OptionFilter {
	f.delta = newBounds(min, max)
	return f
}

func (f *OptionFilter) Gamma(min, max float64) *OptionFilter {
	f.gamma = newBounds(min, max)
	return f
}

func (f *OptionFilter) Vega(min, max float64) *OptionFilter {
	f.vega = newBounds(min, max)
	return f
}

func (f *OptionFilter) Theta(min, max float64) *OptionFilter {
	f.theta = newBounds(min, max)
	return f
}

func (f *OptionFilter) Rho(min, max float64) *OptionFilter {
	f.rho = newBounds(min, max)
	return f
}

func (f *OptionFilter) ImpliedVolatility(min, max float64) *OptionFilter {
	f.impliedVolatility = newBounds(min, max)
	return f
}

func (f *OptionFilter) OpenInterest(min, max int64) *OptionFilter {
	f.openInterest = &bounds{min: fixed.FromInt64(min, 0), max: fixed.FromInt64(max, 0)}
	return f
}

func (f *OptionFilter) CallsOnly() *OptionFilter {
	f.rights = rightsCalls
	return f
}

func (f *OptionFilter) PutsOnly() *OptionFilter {
	f.rights = rightsPuts
	return f
}

func newBounds(min, max float64) *bounds {
	return &bounds{min: fixed.FromFloat64(min), max: fixed.FromFloat64(max)}
}

// Apply returns the contracts passing the filter ordered by expiry, strike and right.
func (f *OptionFilter) Apply(underlyingPrice fixed.Point, now time.Time, contracts []common.OptionContract) []common.OptionContract {
	out := make([]common.OptionContract, 0, len(contracts))
	for _, c := range contracts {
		if f.acceptsContract(c, now) {
			out = append(out, c)
		}
	}

	if f.strikes != nil {
		out = f.filterStrikes(underlyingPrice, out)
	}

	slices.SortFunc(out, func(a, b common.OptionContract) int {
		if c := a.Symbol.Expiry.Compare(b.Symbol.Expiry); c != 0 {
			return c
		}
		if c := a.Symbol.Strike.Cmp(b.Symbol.Strike); c != 0 {
			return c
		}
		return int(a.Symbol.Right) - int(b.Symbol.Right)
	})
	return out
}

func (f *OptionFilter) acceptsContract(c common.OptionContract, now time.Time) bool {
	switch f.rights {
	case rightsCalls:
		if c.Symbol.Right != common.OptionRightCall {
			return false
		}
	case rightsPuts:
		if c.Symbol.Right != common.OptionRightPut {
			return false
		}
	}

	if f.expiration != nil {
		days := DaysUntil(now, c.Symbol.Expiry)
		if days < f.expiration[0] || days > f.expiration[1] {
			return false
		}
	}

	return f.delta.contains(c.Greeks.Delta) &&
		f.gamma.contains(c.Greeks.Gamma) &&
		f.vega.contains(c.Greeks.Vega) &&
		f.theta.contains(c.Greeks.Theta) &&
		f.rho.contains(c.Greeks.Rho) &&
		f.impliedVolatility.contains(c.ImpliedVolatility) &&
		f.openInterest.contains(c.OpenInterest)
}

func (f *OptionFilter) filterStrikes(underlyingPrice fixed.Point, contracts []common.OptionContract) []common.OptionContract {
	strikes := make([]fixed.Point, 0, len(contracts))
	for _, c := range contracts {
		if !slices.ContainsFunc(strikes, c.Symbol.Strike.Eq) {
			strikes = append(strikes, c.Symbol.Strike)
		}
	}
	if len(strikes) == 0 {
		return contracts
	}
	slices.SortFunc(strikes, fixed.Point.Cmp)

	atm := 0
	best := strikes[0].Sub(underlyingPrice).Abs()
	for i, s := range strikes[1:] {
		if d := s.Sub(underlyingPrice).Abs(); d.Lt(best) {
			atm, best = i+1, d
		}
	}

	lo := max(atm+f.strikes[0], 0)
	hi := min(atm+f.strikes[1], len(strikes)-1)
	if lo > hi {
		return contracts[:0]
	}
	minStrike, maxStrike := strikes[lo], strikes[hi]

	out := contracts[:0]
	for _, c := range contracts {
		if c.Symbol.Strike.Between(minStrike, maxStrike) {
			out = append(out, c)
		}
	}
	return out
}

// DaysUntil counts calendar days between the dates of now and expiry.
func DaysUntil(now, expiry time.Time) int {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = expiry.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(today).Hours() / 24)
}
