package security

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/circular"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

type NullVolatilityModel struct{}

func (NullVolatilityModel) Volatility() fixed.Point      { return fixed.Zero }
func (NullVolatilityModel) Update(*Security, common.Bar) {}

// StandardDeviationOfReturnsVolatilityModel annualises the sample deviation of the last
// periods close to close returns. One return is sampled per resolution interval.
type StandardDeviationOfReturnsVolatilityModel struct {
	returns    *circular.Window
	resolution time.Duration
	lastClose  fixed.Point
	lastUpdate time.Time
	volatility fixed.Point
}

func NewStandardDeviationOfReturnsVolatilityModel(periods int, resolution time.Duration) *StandardDeviationOfReturnsVolatilityModel {
	return &StandardDeviationOfReturnsVolatilityModel{
		returns:    circular.NewWindow(periods),
		resolution: resolution,
	}
}

func (m *StandardDeviationOfReturnsVolatilityModel) Volatility() fixed.Point {
	return m.volatility
}

func (m *StandardDeviationOfReturnsVolatilityModel) Update(_ *Security, bar common.Bar) {
	if bar.Close.IsZero() {
		return
	}
	if !m.lastUpdate.IsZero() && bar.TimeStamp.Sub(m.lastUpdate) < m.resolution {
		return
	}

	if !m.lastClose.IsZero() {
		m.returns.Push(bar.Close.Div(m.lastClose).Sub(fixed.One))
		if m.returns.Len() > 1 {
			m.volatility = m.returns.SampleStdDev().Mul(fixed.TradingDaysPerYear.Sqrt())
		}
	}

	m.lastClose = bar.Close
	m.lastUpdate = bar.TimeStamp
}
