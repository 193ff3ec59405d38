package scenario

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/parity/pkg/algorithm"
	"github.com/peter-kozarec/parity/pkg/check"
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/mapping"
	"github.com/peter-kozarec/parity/pkg/walker"
)

// ContinuousFutureModelsConsistency overrides the models of a continuous future and checks every
// contract it maps onto after a roll.
type ContinuousFutureModelsConsistency struct {
	modelsConsistency
	mappings *walker.MappingWalker
}

func NewContinuousFutureModelsConsistency(opts ...check.Option) *ContinuousFutureModelsConsistency {
	return &ContinuousFutureModelsConsistency{
		modelsConsistency: newModelsConsistency("mapped contract", check.DefaultExpectations(), opts),
	}
}

func (a *ContinuousFutureModelsConsistency) Initialize(h *algorithm.Host) error {
	h.SetStartDate(2013, time.July, 1)
	h.SetEndDate(2014, time.January, 1)

	if err := h.SetSecurityInitializer(NewCustomSecurityInitializer(h.BrokerageModel(), nil)); err != nil {
		return err
	}

	future, err := h.AddFuture("ES",
		algorithm.WithMapping(mapping.MappingModeOpenInterest),
		algorithm.WithNormalization(mapping.NormalizationModeBackwardsPanamaCanal),
		algorithm.WithContractDepth(1))
	if err != nil {
		return err
	}
	if err := setModels(future); err != nil {
		return fmt.Errorf("set models on %s: %w", future.Symbol(), err)
	}

	a.mappings = walker.NewMappingWalker(future.Symbol(), h.Securities())
	a.walker = a.mappings
	return nil
}

func (a *ContinuousFutureModelsConsistency) OnEndOfAlgorithm(h *algorithm.Host) error {
	if err := algorithm.Assert(a.mappings.Mapped() > 0, "continuous future was never remapped"); err != nil {
		return err
	}
	return a.modelsConsistency.OnEndOfAlgorithm(h)
}

const expectedEuroStoxxMappings = 6

// ContinuousFutureMappings follows the EURO STOXX 50 continuous future across its quarterly
// rolls. Every slice holds only the continuous symbol and every roll changes the mapped contract.
type ContinuousFutureMappings struct {
	algorithm.Base
	continuous common.Symbol
	mapped     common.Symbol
	mappings   int
}

func NewContinuousFutureMappings(...check.Option) *ContinuousFutureMappings {
	return &ContinuousFutureMappings{}
}

func (a *ContinuousFutureMappings) Initialize(h *algorithm.Host) error {
	h.SetStartDate(2023, time.January, 1)
	h.SetEndDate(2024, time.August, 5)

	future, err := h.AddFuture("FESX",
		algorithm.WithMarket(common.MarketEUREX),
		algorithm.WithMapping(mapping.MappingModeFirstDayMonth),
		algorithm.WithNormalization(mapping.NormalizationModeBackwardsRatio),
		algorithm.WithContractDepth(0))
	if err != nil {
		return err
	}
	a.continuous = future.Symbol()
	return nil
}

func (a *ContinuousFutureMappings) OnData(h *algorithm.Host, slice common.Slice) error {
	keys := slice.Keys()
	if err := algorithm.Assert(len(keys) == 1 && keys[0] == a.continuous.ID(), "unexpected keys in slice %v", keys); err != nil {
		return err
	}

	sec, err := h.Securities().Find(a.continuous)
	if err != nil {
		return err
	}
	if a.mapped.IsZero() {
		a.mapped = sec.Mapped()
	}

	ev, ok := slice.SymbolChanged(a.continuous)
	if !ok {
		return nil
	}
	if err := algorithm.Assert(!ev.NewSymbol.Equal(a.mapped), "mapped contract did not change on %s", ev); err != nil {
		return err
	}
	if err := algorithm.Assert(ev.OldSymbol.Equal(a.mapped), "roll %s does not start from %s", ev, a.mapped); err != nil {
		return err
	}

	a.mapped = ev.NewSymbol
	a.mappings++
	h.Log("contract rolled", ev.Fields()...)
	return nil
}

func (a *ContinuousFutureMappings) OnEndOfAlgorithm(*algorithm.Host) error {
	return algorithm.Assert(a.mappings == expectedEuroStoxxMappings,
		"expected %d mappings, got %d", expectedEuroStoxxMappings, a.mappings)
}

type futureTicker struct {
	ticker string
	market string
}

var mappedFutures = []futureTicker{
	{"ZS", common.MarketCBOT},
	{"ZW", common.MarketCBOT},
	{"ZM", common.MarketCBOT},
	{"ZL", common.MarketCBOT},
	{"ZC", common.MarketCBOT},
	{"ZO", common.MarketCBOT},
	{"LE", common.MarketCME},
	{"GF", common.MarketCME},
	{"HE", common.MarketCME},
	{"PL", common.MarketNYMEX},
	{"HO", common.MarketNYMEX},
	{"NG", common.MarketNYMEX},
	{"B", common.MarketICE},
	{"G", common.MarketICE},
	{"CT", common.MarketICE},
	{"OJ", common.MarketICE},
	{"KC", common.MarketICE},
	{"CC", common.MarketICE},
	{"GC", common.MarketCOMEX},
	{"SI", common.MarketCOMEX},
}

// FuturesMappedContractsAdded maps a basket of continuous futures and requires that both sides
// of every roll are known securities.
type FuturesMappedContractsAdded struct {
	algorithm.Base
	futures []common.Symbol
	rolls   int
}

func NewFuturesMappedContractsAdded(...check.Option) *FuturesMappedContractsAdded {
	return &FuturesMappedContractsAdded{}
}

func (a *FuturesMappedContractsAdded) Initialize(h *algorithm.Host) error {
	h.SetStartDate(2018, time.November, 30)
	h.SetEndDate(2019, time.September, 1)

	for _, f := range mappedFutures {
		sec, err := h.AddFuture(f.ticker,
			algorithm.WithMarket(f.market),
			algorithm.WithMapping(mapping.MappingModeOpenInterest),
			algorithm.WithNormalization(mapping.NormalizationModeBackwardsRatio),
			algorithm.WithContractDepth(0))
		if err != nil {
			return err
		}
		a.futures = append(a.futures, sec.Symbol())
	}
	return nil
}

func (a *FuturesMappedContractsAdded) OnData(h *algorithm.Host, slice common.Slice) error {
	for _, continuous := range a.futures {
		ev, ok := slice.SymbolChanged(continuous)
		if !ok {
			continue
		}
		if err := algorithm.Assert(h.Portfolio().Contains(ev.OldSymbol), "old contract %s missing from portfolio", ev.OldSymbol); err != nil {
			return err
		}
		if err := algorithm.Assert(h.Securities().Contains(ev.NewSymbol), "new contract %s missing from securities", ev.NewSymbol); err != nil {
			return err
		}
		a.rolls++
	}
	return nil
}

func (a *FuturesMappedContractsAdded) OnEndOfAlgorithm(h *algorithm.Host) error {
	h.Log("futures rolled", rollsField(a.rolls))
	return algorithm.Assert(a.rolls > 0, "no future was rolled")
}
