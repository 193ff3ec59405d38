package mapping

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

type roll struct {
	date   time.Time
	ratio  fixed.Point
	offset fixed.Point
}

// Adjuster removes the price gaps a roll introduces into a continuous series. Forward modes
// adjust bars as they arrive, backward modes rewrite history behind each roll.
type Adjuster struct {
	mode   NormalizationMode
	rolls  []roll
	offset fixed.Point
}

func NewAdjuster(mode NormalizationMode) *Adjuster {
	return &Adjuster{mode: mode}
}

func (a *Adjuster) Mode() NormalizationMode {
	return a.mode
}

// Roll records a switch from a contract priced oldPrice to one priced newPrice on date.
func (a *Adjuster) Roll(date time.Time, oldPrice, newPrice fixed.Point) {
	r := roll{date: date, ratio: fixed.One, offset: newPrice.Sub(oldPrice)}
	if !oldPrice.IsZero() {
		r.ratio = newPrice.Div(oldPrice)
	}
	a.rolls = append(a.rolls, r)
	a.offset = a.offset.Sub(r.offset)
}

func (a *Adjuster) Rolls() int {
	return len(a.rolls)
}

// Adjust prepares a live bar of the mapped contract for delivery under the continuous symbol.
func (a *Adjuster) Adjust(bar common.Bar) common.Bar {
	if a.mode != NormalizationModeForwardPanamaCanal {
		return bar
	}
	return shift(bar, a.offset)
}

// Normalize rewrites a raw continuous history so that it is continuous across recorded rolls.
// Bars on or after the last roll keep their raw prices.
func (a *Adjuster) Normalize(bars []common.Bar) []common.Bar {
	out := make([]common.Bar, len(bars))
	for i, bar := range bars {
		switch a.mode {
		case NormalizationModeBackwardsRatio:
			factor := fixed.One
			for _, r := range a.rolls {
				if bar.TimeStamp.Before(r.date) {
					factor = factor.Mul(r.ratio)
				}
			}
			out[i] = scale(bar, factor)
		case NormalizationModeBackwardsPanamaCanal:
			offset := fixed.Zero
			for _, r := range a.rolls {
				if bar.TimeStamp.Before(r.date) {
					offset = offset.Add(r.offset)
				}
			}
			out[i] = shift(bar, offset)
		default:
			out[i] = bar
		}
	}
	return out
}

func scale(bar common.Bar, factor fixed.Point) common.Bar {
	bar.Open = bar.Open.Mul(factor)
	bar.High = bar.High.Mul(factor)
	bar.Low = bar.Low.Mul(factor)
	bar.Close = bar.Close.Mul(factor)
	return bar
}

func shift(bar common.Bar, offset fixed.Point) common.Bar {
	bar.Open = bar.Open.Add(offset)
	bar.High = bar.High.Add(offset)
	bar.Low = bar.Low.Add(offset)
	bar.Close = bar.Close.Add(offset)
	return bar
}
