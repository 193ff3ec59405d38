package scenario

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/algorithm"
	"github.com/peter-kozarec/parity/pkg/check"
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource/custom"
	"github.com/peter-kozarec/parity/pkg/security"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

const bitcoinTicker = "BTC"

// CustomData trades a user defined bitcoin feed. Added securities are seeded with their last
// known price so they carry data before the first record arrives.
type CustomData struct {
	algorithm.Base
	bitcoin common.Symbol
	records int
}

func NewCustomData(...check.Option) *CustomData {
	return &CustomData{}
}

func (a *CustomData) Initialize(h *algorithm.Host) error {
	h.SetStartDate(2020, time.January, 5)
	h.SetEndDate(2020, time.January, 10)
	h.SetCash(fixed.FromInt(100000, 0))

	seeder := security.FuncSeeder(h.LastKnownPrices)
	if err := h.SetSecurityInitializer(security.NewBrokerageModelSecurityInitializer(h.BrokerageModel(), seeder)); err != nil {
		return err
	}

	sec, err := h.AddData(bitcoinTicker, custom.Bitcoin{})
	if err != nil {
		return err
	}
	a.bitcoin = sec.Symbol()
	return nil
}

func (a *CustomData) OnSecuritiesChanged(h *algorithm.Host, changes common.SecurityChanges) error {
	for _, symbol := range changes.Added {
		sec, err := h.Securities().Find(symbol)
		if err != nil {
			return err
		}
		if err := algorithm.Assert(sec.HasData(), "security %s was not seeded", symbol); err != nil {
			return err
		}
	}
	return nil
}

func (a *CustomData) OnData(h *algorithm.Host, slice common.Slice) error {
	rec, ok := slice.CustomData(a.bitcoin)
	if !ok {
		return nil
	}
	a.records++

	if h.Portfolio().Invested() {
		return nil
	}
	quantity := h.Portfolio().MarginRemaining().Div(rec.Value.Abs().Add(fixed.One)).Rescale(0)
	if quantity.IsZero() {
		return nil
	}
	_, err := h.Order(a.bitcoin, quantity)
	return err
}

func (a *CustomData) OnEndOfAlgorithm(h *algorithm.Host) error {
	h.Log("custom data done", recordsField(a.records))
	return algorithm.Assert(a.records > 0, "no %s record was received", bitcoinTicker)
}
