package scenario

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/parity/pkg/algorithm"
	"github.com/peter-kozarec/parity/pkg/check"
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/universe"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
	"github.com/peter-kozarec/parity/pkg/walker"
)

// OptionModelsConsistency overrides the models of an equity option root and checks that every
// contract selected by the universe filter carries them.
type OptionModelsConsistency struct {
	modelsConsistency
}

func NewOptionModelsConsistency(opts ...check.Option) *OptionModelsConsistency {
	return &OptionModelsConsistency{
		modelsConsistency: newModelsConsistency("option contract", check.DefaultExpectations(), opts),
	}
}

func (a *OptionModelsConsistency) Initialize(h *algorithm.Host) error {
	h.SetStartDate(2015, time.December, 24)
	h.SetEndDate(2015, time.December, 24)

	if err := h.SetSecurityInitializer(NewCustomSecurityInitializer(h.BrokerageModel(), nil)); err != nil {
		return err
	}

	equity, err := h.AddEquity("GOOG", algorithm.WithLeverage(fixed.FromInt(4, 0)))
	if err != nil {
		return err
	}
	option, err := h.AddOption(equity.Symbol(), algorithm.WithFilter(func(f *universe.OptionFilter) *universe.OptionFilter {
		return f.Strikes(-2, 2).Expiration(0, 180)
	}))
	if err != nil {
		return err
	}
	if err := setModels(option); err != nil {
		return fmt.Errorf("set models on %s: %w", option.Symbol(), err)
	}

	a.walker = walker.NewChainWalker(option.Symbol(), h.Securities())
	return nil
}

// FutureOptionModelsConsistency overrides the models of a future option root and checks a
// contract added manually from the chain provider.
type FutureOptionModelsConsistency struct {
	modelsConsistency
}

func NewFutureOptionModelsConsistency(opts ...check.Option) *FutureOptionModelsConsistency {
	return &FutureOptionModelsConsistency{
		modelsConsistency: newModelsConsistency("future option contract", check.DefaultExpectations(), opts),
	}
}

func (a *FutureOptionModelsConsistency) Initialize(h *algorithm.Host) error {
	h.SetStartDate(2012, time.January, 3)
	h.SetEndDate(2012, time.January, 4)

	if err := h.SetSecurityInitializer(NewCustomSecurityInitializer(h.BrokerageModel(), nil)); err != nil {
		return err
	}

	future := common.NewFutureContract("DC", common.MarketCME, common.ThirdFriday(2012, time.April))
	contracts := h.OptionChainProvider().OptionContracts(future, h.Time())
	if err := algorithm.Assert(len(contracts) > 0, "no option contracts listed on %s", future); err != nil {
		return err
	}

	option, err := h.AddFutureOption(future)
	if err != nil {
		return err
	}
	if err := setModels(option); err != nil {
		return fmt.Errorf("set models on %s: %w", option.Symbol(), err)
	}

	contract, err := h.AddFutureOptionContract(contracts[0])
	if err != nil {
		return err
	}
	h.Debug("future option contract added", symbolField("contract", contract.Symbol()))
	return a.checker.Check(contract)
}

var (
	greeksDelta      = [2]float64{0.5, 1.5}
	greeksGamma      = [2]float64{0.0001, 0.0006}
	greeksVega       = [2]float64{0.01, 1.5}
	greeksTheta      = [2]float64{-2, -0.5}
	greeksRho        = [2]float64{0.5, 3}
	greeksIV         = [2]float64{1, 3}
	greeksOpenInt    = [2]int64{100, 500}
	greeksUnderlying = "GOOG"
)

// OptionUniverseFilterGreeks filters a chain on every greek at once and verifies each delivered
// contract lies inside the requested bounds.
type OptionUniverseFilterGreeks struct {
	algorithm.Base
	canonical common.Symbol
	received  bool
	contracts int
}

func NewOptionUniverseFilterGreeks(...check.Option) *OptionUniverseFilterGreeks {
	return &OptionUniverseFilterGreeks{}
}

func (a *OptionUniverseFilterGreeks) Initialize(h *algorithm.Host) error {
	h.SetStartDate(2015, time.December, 24)
	h.SetEndDate(2015, time.December, 24)

	equity, err := h.AddEquity(greeksUnderlying)
	if err != nil {
		return err
	}
	option, err := h.AddOption(equity.Symbol(), algorithm.WithFilter(func(f *universe.OptionFilter) *universe.OptionFilter {
		return f.
			Delta(greeksDelta[0], greeksDelta[1]).
			Gamma(greeksGamma[0], greeksGamma[1]).
			Vega(greeksVega[0], greeksVega[1]).
			Theta(greeksTheta[0], greeksTheta[1]).
			Rho(greeksRho[0], greeksRho[1]).
			ImpliedVolatility(greeksIV[0], greeksIV[1]).
			OpenInterest(greeksOpenInt[0], greeksOpenInt[1])
	}))
	if err != nil {
		return err
	}
	a.canonical = option.Symbol()
	return nil
}

func (a *OptionUniverseFilterGreeks) OnData(h *algorithm.Host, slice common.Slice) error {
	chain, ok := slice.OptionChain(a.canonical)
	if !ok {
		return nil
	}
	if err := algorithm.Assert(chain.Len() > 0, "empty option chain for %s", a.canonical); err != nil {
		return err
	}
	a.received = true

	for _, c := range chain.Contracts {
		if err := verifyGreeks(c); err != nil {
			return err
		}
		a.contracts++
	}
	h.Debug("option chain verified", contractsField(chain.Len()))
	return nil
}

func (a *OptionUniverseFilterGreeks) OnEndOfAlgorithm(h *algorithm.Host) error {
	h.Log("greeks filter done", contractsField(a.contracts))
	return algorithm.Assert(a.received, "option chain was never received")
}

func verifyGreeks(c common.OptionContract) error {
	g := c.Greeks
	checks := []struct {
		name  string
		value fixed.Point
		lo    float64
		hi    float64
	}{
		{"delta", g.Delta, greeksDelta[0], greeksDelta[1]},
		{"gamma", g.Gamma, greeksGamma[0], greeksGamma[1]},
		{"vega", g.Vega, greeksVega[0], greeksVega[1]},
		{"theta", g.Theta, greeksTheta[0], greeksTheta[1]},
		{"rho", g.Rho, greeksRho[0], greeksRho[1]},
		{"implied volatility", c.ImpliedVolatility, greeksIV[0], greeksIV[1]},
		{"open interest", c.OpenInterest, float64(greeksOpenInt[0]), float64(greeksOpenInt[1])},
	}
	for _, chk := range checks {
		if !chk.value.Between(fixed.FromFloat64(chk.lo), fixed.FromFloat64(chk.hi)) {
			return algorithm.Assert(false, "%s %s %s outside [%v, %v]", c.Symbol, chk.name, chk.value, chk.lo, chk.hi)
		}
	}
	return nil
}
