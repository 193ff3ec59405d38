package common

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

// CustomData is a user defined record. The zero value is the empty record a reader returns for
// input it cannot parse.
type CustomData struct {
	Symbol    Symbol                 `json:"symbol"`
	TimeStamp time.Time              `json:"ts"`
	EndTime   time.Time              `json:"end_time"`
	Value     fixed.Point            `json:"value"`
	Fields    map[string]fixed.Point `json:"fields,omitempty"`
}

func (d CustomData) IsEmpty() bool {
	return d.Symbol.IsZero() && d.TimeStamp.IsZero() && len(d.Fields) == 0
}

func (d CustomData) Field(name string) fixed.Point {
	return d.Fields[name]
}

// Bar exposes the record as a daily bar so securities can track its price.
func (d CustomData) Bar() Bar {
	price := d.Value
	return Bar{
		Symbol:    d.Symbol,
		TimeStamp: d.TimeStamp,
		Period:    d.EndTime.Sub(d.TimeStamp),
		Open:      price,
		High:      firstNonZero(d.Fields["high"], price),
		Low:       firstNonZero(d.Fields["low"], price),
		Close:     price,
		Volume:    d.Fields["volume"],
	}
}

func firstNonZero(v, fallback fixed.Point) fixed.Point {
	if v.IsZero() {
		return fallback
	}
	return v
}
