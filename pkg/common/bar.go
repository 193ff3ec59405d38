package common

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/utility"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Bar struct {
	Source       string              `json:"src,omitempty"`
	Symbol       Symbol              `json:"symbol"`
	ExecutionId  utility.ExecutionID `json:"eid,omitempty"`
	TraceID      utility.TraceID     `json:"tid,omitempty"`
	TimeStamp    time.Time           `json:"ts"`
	Period       time.Duration       `json:"period"`
	Open         fixed.Point         `json:"open"`
	High         fixed.Point         `json:"high"`
	Low          fixed.Point         `json:"low"`
	Close        fixed.Point         `json:"close"`
	Volume       fixed.Point         `json:"volume"`
	OpenInterest fixed.Point         `json:"open_interest,omitempty"`
}

func (b Bar) EndTime() time.Time {
	return b.TimeStamp.Add(b.Period)
}

func (b Bar) Fields() []zap.Field {
	return append(b.Symbol.Fields(),
		zap.Time("ts", b.TimeStamp),
		zap.String("close", b.Close.String()),
		zap.String("volume", b.Volume.String()),
		zap.String("open_interest", b.OpenInterest.String()))
}
