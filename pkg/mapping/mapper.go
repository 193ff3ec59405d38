package mapping

import (
	"slices"
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
)

// Mapper decides which contract a continuous future stands for on a given date.
type Mapper struct {
	continuous common.Symbol
	mode       MappingMode
	depth      int

	mapped common.Symbol
	front  time.Time
}

func NewMapper(continuous common.Symbol, mode MappingMode, depthOffset int) *Mapper {
	return &Mapper{
		continuous: continuous.Canonical(),
		mode:       mode,
		depth:      max(depthOffset, 0),
	}
}

func (m *Mapper) Continuous() common.Symbol {
	return m.continuous
}

func (m *Mapper) Mode() MappingMode {
	return m.mode
}

func (m *Mapper) Mapped() (common.Symbol, bool) {
	return m.mapped, !m.mapped.IsZero()
}

// Update maps the continuous contract from the contract bars available on date. The first
// mapping is silent. Every later change of the mapped contract is reported as an event.
func (m *Mapper) Update(date time.Time, bars []common.Bar) (common.SymbolChangedEvent, bool) {
	next, ok := m.selectContract(date, bars)
	if !ok || next.Equal(m.mapped) {
		return common.SymbolChangedEvent{}, false
	}

	old := m.mapped
	m.mapped = next
	if old.IsZero() {
		return common.SymbolChangedEvent{}, false
	}

	return common.SymbolChangedEvent{
		TimeStamp: date,
		Symbol:    m.continuous,
		OldSymbol: old,
		NewSymbol: next,
	}, true
}

func (m *Mapper) selectContract(date time.Time, bars []common.Bar) (common.Symbol, bool) {
	candidates := make([]common.Bar, 0, len(bars))
	for _, b := range bars {
		s := b.Symbol
		if s.Type != common.SecurityTypeFuture || s.IsCanonical() || s.Ticker != m.continuous.Ticker || s.Market != m.continuous.Market {
			continue
		}
		if m.eligible(date, s.Expiry) {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return common.Symbol{}, false
	}
	slices.SortFunc(candidates, func(a, b common.Bar) int {
		return a.Symbol.Expiry.Compare(b.Symbol.Expiry)
	})

	front := 0
	if m.mode == MappingModeOpenInterest {
		front = m.openInterestFront(candidates)
	}
	m.front = candidates[front].Symbol.Expiry

	idx := front + m.depth
	if idx >= len(candidates) {
		return common.Symbol{}, false
	}
	return candidates[idx].Symbol, true
}

func (m *Mapper) eligible(date, expiry time.Time) bool {
	day := truncateDay(date)
	switch m.mode {
	case MappingModeFirstDayMonth:
		firstOfMonth := time.Date(expiry.Year(), expiry.Month(), 1, 0, 0, 0, 0, time.UTC)
		return day.Before(firstOfMonth)
	default:
		return day.Before(truncateDay(expiry))
	}
}

// openInterestFront keeps the current front contract and rolls to the next expiry only when the
// next one has the higher open interest. Deferred contracts are never compared, so the mapping
// advances at most one contract per update and never rolls backwards.
func (m *Mapper) openInterestFront(sorted []common.Bar) int {
	front := 0
	for front < len(sorted) && sorted[front].Symbol.Expiry.Before(m.front) {
		front++
	}
	if front == len(sorted) {
		return 0
	}
	if next := front + 1; next < len(sorted) && sorted[next].OpenInterest.Gt(sorted[front].OpenInterest) {
		return next
	}
	return front
}

func truncateDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
