package historical

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

// BinaryBar is the on-disk bar. TimeStamp is the bar end in unix nanoseconds.
type BinaryBar struct {
	TimeStamp    int64
	Period       int64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	OpenInterest float64
}

func NewBinaryBar(bar common.Bar) BinaryBar {
	f := func(p fixed.Point) float64 {
		v, _ := p.Float64()
		return v
	}
	return BinaryBar{
		TimeStamp:    bar.EndTime().UnixNano(),
		Period:       int64(bar.Period),
		Open:         f(bar.Open),
		High:         f(bar.High),
		Low:          f(bar.Low),
		Close:        f(bar.Close),
		Volume:       f(bar.Volume),
		OpenInterest: f(bar.OpenInterest),
	}
}

func (b BinaryBar) ToBar(symbol common.Symbol, bar *common.Bar) {
	period := time.Duration(b.Period)
	bar.Symbol = symbol
	bar.TimeStamp = time.Unix(0, b.TimeStamp).UTC().Add(-period)
	bar.Period = period
	bar.Open = fixed.FromFloat64(b.Open)
	bar.High = fixed.FromFloat64(b.High)
	bar.Low = fixed.FromFloat64(b.Low)
	bar.Close = fixed.FromFloat64(b.Close)
	bar.Volume = fixed.FromFloat64(b.Volume)
	bar.OpenInterest = fixed.FromFloat64(b.OpenInterest)
}
