package common

import (
	"slices"
	"time"

	"github.com/peter-kozarec/parity/pkg/utility"
)

// Frame is what a feed produces for one point in time, before the engine resolves chains and
// continuous contracts.
type Frame struct {
	TimeStamp time.Time        `json:"ts"`
	Bars      []Bar            `json:"bars,omitempty"`
	Quotes    []OptionContract `json:"quotes,omitempty"`
	Custom    []CustomData     `json:"custom,omitempty"`
}

func (f Frame) IsEmpty() bool {
	return len(f.Bars) == 0 && len(f.Quotes) == 0 && len(f.Custom) == 0
}

// Slice is the data delivered to an algorithm for one point in time. Maps are keyed by Symbol.ID.
type Slice struct {
	ExecutionId         utility.ExecutionID           `json:"eid,omitempty"`
	TraceID             utility.TraceID               `json:"tid,omitempty"`
	TimeStamp           time.Time                     `json:"ts"`
	Bars                map[string]Bar                `json:"bars,omitempty"`
	OptionChains        map[string]OptionChain        `json:"option_chains,omitempty"`
	SymbolChangedEvents map[string]SymbolChangedEvent `json:"symbol_changed_events,omitempty"`
	Custom              map[string]CustomData         `json:"custom,omitempty"`
}

func NewSlice(ts time.Time) Slice {
	return Slice{
		TimeStamp:           ts,
		Bars:                make(map[string]Bar),
		OptionChains:        make(map[string]OptionChain),
		SymbolChangedEvents: make(map[string]SymbolChangedEvent),
		Custom:              make(map[string]CustomData),
	}
}

// Keys lists the ids of the symbols carrying data in the slice. Symbol changed events are
// notifications and do not count as data.
func (s Slice) Keys() []string {
	keys := make([]string, 0, len(s.Bars)+len(s.OptionChains)+len(s.Custom))
	for k := range s.Bars {
		keys = append(keys, k)
	}
	for k := range s.OptionChains {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	for k := range s.Custom {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func (s Slice) HasData() bool {
	return len(s.Bars) > 0 || len(s.OptionChains) > 0 || len(s.Custom) > 0
}

func (s Slice) Bar(symbol Symbol) (Bar, bool) {
	b, ok := s.Bars[symbol.ID()]
	return b, ok
}

func (s Slice) OptionChain(canonical Symbol) (OptionChain, bool) {
	c, ok := s.OptionChains[canonical.Canonical().ID()]
	return c, ok
}

func (s Slice) SymbolChanged(continuous Symbol) (SymbolChangedEvent, bool) {
	e, ok := s.SymbolChangedEvents[continuous.ID()]
	return e, ok
}

func (s Slice) CustomData(symbol Symbol) (CustomData, bool) {
	d, ok := s.Custom[symbol.ID()]
	return d, ok
}
