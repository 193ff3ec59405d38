package common

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/utility"
	"go.uber.org/zap"
)

// SymbolChangedEvent reports that the continuous contract Symbol now maps to NewSymbol.
type SymbolChangedEvent struct {
	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
	Symbol      Symbol              `json:"symbol"`
	OldSymbol   Symbol              `json:"old_symbol"`
	NewSymbol   Symbol              `json:"new_symbol"`
}

func (e SymbolChangedEvent) String() string {
	return e.TimeStamp.Format(time.DateOnly) + " " + e.Symbol.String() + ": " + e.OldSymbol.String() + " -> " + e.NewSymbol.String()
}

func (e SymbolChangedEvent) Fields() []zap.Field {
	return []zap.Field{
		zap.Time("ts", e.TimeStamp),
		zap.String("symbol", e.Symbol.String()),
		zap.String("old_symbol", e.OldSymbol.String()),
		zap.String("new_symbol", e.NewSymbol.String()),
	}
}

type SecurityChanges struct {
	TimeStamp time.Time `json:"ts"`
	Added     []Symbol  `json:"added"`
	Removed   []Symbol  `json:"removed"`
}

func (c SecurityChanges) Count() int {
	return len(c.Added) + len(c.Removed)
}

func (c SecurityChanges) IsEmpty() bool {
	return c.Count() == 0
}

func (c *SecurityChanges) Merge(other SecurityChanges) {
	c.Added = append(c.Added, other.Added...)
	c.Removed = append(c.Removed, other.Removed...)
}
