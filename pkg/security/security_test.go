package security

import (
	"errors"
	"testing"
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type constantLeverage struct{ value fixed.Point }

func (c constantLeverage) Leverage(*Security) fixed.Point     { return c.value }
func (c constantLeverage) SetLeverage(*Security, fixed.Point) {}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	initializer := NewBrokerageModelSecurityInitializer(NewDefaultBrokerageModel(), NullSeeder{})
	return NewManager(zaptest.NewLogger(t), nil, initializer)
}

func TestSecurity_SetNilModelKeepsPrevious(t *testing.T) {
	sec := New(common.NewEquity("SPY", common.MarketUSA), SymbolProperties{})
	fee := NewConstantFeeModel(fixed.One, "USD")
	require.NoError(t, sec.SetFeeModel(fee))

	tests := []struct {
		name string
		set  func() error
	}{
		{"fill", func() error { return sec.SetFillModel(nil) }},
		{"fee", func() error { return sec.SetFeeModel(nil) }},
		{"buying power", func() error { return sec.SetBuyingPowerModel(nil) }},
		{"slippage", func() error { return sec.SetSlippageModel(nil) }},
		{"volatility", func() error { return sec.SetVolatilityModel(nil) }},
		{"assignment", func() error { return sec.SetAssignmentModel(nil) }},
		{"all", func() error { return sec.SetModels(Models{Fee: fee}) }},
		{"typed nil fill", func() error { return sec.SetFillModel((*ImmediateFillModel)(nil)) }},
		{"typed nil fee", func() error { return sec.SetFeeModel((*ConstantFeeModel)(nil)) }},
		{"typed nil buying power", func() error { return sec.SetBuyingPowerModel((*SecurityMarginModel)(nil)) }},
		{"typed nil slippage", func() error { return sec.SetSlippageModel((*ConstantSlippageModel)(nil)) }},
		{"typed nil volatility", func() error {
			return sec.SetVolatilityModel((*StandardDeviationOfReturnsVolatilityModel)(nil))
		}},
		{"typed nil assignment", func() error { return sec.SetAssignmentModel((*DefaultExerciseModel)(nil)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set()
			assert.True(t, errors.Is(err, ErrNilModel))
			assert.Same(t, fee, sec.FeeModel())
		})
	}

	assert.NotPanics(t, func() { sec.FeeModel().OrderFee(FeeParameters{Security: sec}) })
}

func TestIsNilModel(t *testing.T) {
	var fn SimulationFunc
	tests := []struct {
		name  string
		model any
		want  bool
	}{
		{"untyped nil", nil, true},
		{"nil pointer", (*ConstantFeeModel)(nil), true},
		{"nil func", fn, true},
		{"pointer", NewConstantFeeModel(fixed.One, "USD"), false},
		{"value", NullVolatilityModel{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNilModel(tt.model))
		})
	}
}

func TestManager_AddDerivedInheritsOverrides(t *testing.T) {
	m := newTestManager(t)

	goog, _, err := m.Add(common.NewEquity("GOOG", common.MarketUSA))
	require.NoError(t, err)

	root, created, err := m.Add(common.NewOption(goog.Symbol()))
	require.NoError(t, err)
	assert.True(t, created)

	leverage := constantLeverage{value: fixed.FromInt(999, 0)}
	require.NoError(t, root.SetBuyingPowerModel(leverage))

	contractSymbol := common.NewOptionContract(goog.Symbol(), common.OptionRightCall, fixed.FromInt(750, 0), time.Date(2016, 1, 15, 0, 0, 0, 0, time.UTC))
	contract, created, err := m.AddDerived(root, contractSymbol)
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, leverage, contract.BuyingPowerModel())
	assert.True(t, contract.Leverage().Eq(fixed.FromInt(999, 0)))
	assert.NotNil(t, contract.FillModel())
	assert.IsType(t, &DefaultExerciseModel{}, contract.AssignmentModel())
	assert.Same(t, goog, contract.Underlying())

	again, created, err := m.AddDerived(root, contractSymbol)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, contract, again)
}

func TestManager_InitializerDoesNotOverwriteOverrides(t *testing.T) {
	m := newTestManager(t)
	root, _, err := m.Add(common.NewFuture("ES", common.MarketCME))
	require.NoError(t, err)

	fee := NewConstantFeeModel(fixed.FromInt(123, 0), "ABC")
	require.NoError(t, root.SetFeeModel(fee))

	m.SetInitializer(NewBrokerageModelSecurityInitializer(NewDefaultBrokerageModel(), nil))
	contract, _, err := m.AddDerived(root, common.NewFutureContract("ES", common.MarketCME, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	got := contract.FeeModel().OrderFee(FeeParameters{Security: contract})
	assert.True(t, got.Value.Amount.Eq(fixed.FromInt(123, 0)))
	assert.Equal(t, "ABC", got.Value.Currency)
}

func TestManager_FindMissing(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Find(common.NewEquity("SPY", common.MarketUSA))
	assert.True(t, errors.Is(err, ErrSecurityNotFound))
	assert.Panics(t, func() { m.MustGet(common.NewEquity("SPY", common.MarketUSA)) })
}

func TestDefaultBrokerageModel_Leverage(t *testing.T) {
	m := newTestManager(t)
	tests := []struct {
		name   string
		symbol common.Symbol
		want   fixed.Point
	}{
		{"equity", common.NewEquity("SPY", common.MarketUSA), fixed.Two},
		{"future", common.NewFuture("ES", common.MarketCME), fixed.One},
		{"custom", common.NewCustom("BTC"), fixed.One},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sec, _, err := m.Add(tt.symbol)
			require.NoError(t, err)
			assert.True(t, sec.Leverage().Eq(tt.want))
		})
	}
}

func TestImmediateFillModel_Fill(t *testing.T) {
	m := newTestManager(t)
	sec, _, err := m.Add(common.NewEquity("SPY", common.MarketUSA))
	require.NoError(t, err)

	order := common.Order{Id: 1, Symbol: sec.Symbol(), Quantity: fixed.Ten}
	fill := sec.FillModel().Fill(FillParameters{Security: sec, Order: order})
	ev, ok := fill.First()
	require.True(t, ok)
	assert.Equal(t, common.OrderStatusInvalid, ev.Status)

	require.NoError(t, sec.SetSlippageModel(NewConstantSlippageModel(fixed.MustParse("0.01"))))
	sec.Update(common.Bar{Symbol: sec.Symbol(), Close: fixed.Hundred})

	fill = sec.FillModel().Fill(FillParameters{Security: sec, Order: order})
	ev, _ = fill.First()
	assert.Equal(t, common.OrderStatusFilled, ev.Status)
	assert.True(t, ev.FillPrice.Eq(fixed.FromInt(101, 0)))
}

func TestStandardDeviationOfReturnsVolatilityModel(t *testing.T) {
	model := NewStandardDeviationOfReturnsVolatilityModel(10, 24*time.Hour)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	closes := []string{"100", "101", "99", "102", "100"}
	for i, c := range closes {
		model.Update(nil, common.Bar{TimeStamp: start.AddDate(0, 0, i), Close: fixed.MustParse(c)})
		if i < 2 {
			assert.True(t, model.Volatility().IsZero())
		}
	}
	assert.True(t, model.Volatility().Gt(fixed.Zero))

	before := model.Volatility()
	model.Update(nil, common.Bar{TimeStamp: start.AddDate(0, 0, 4).Add(time.Hour), Close: fixed.Thousand})
	assert.True(t, before.Eq(model.Volatility()))
}

func TestOptionAssignmentSimulation(t *testing.T) {
	m := newTestManager(t)
	portfolio := NewPortfolio(m, "USD")
	expiry := time.Date(2015, 12, 24, 0, 0, 0, 0, time.UTC)

	spy, _, err := m.Add(common.NewEquity("SPY", common.MarketUSA))
	require.NoError(t, err)
	spy.Update(common.Bar{Symbol: spy.Symbol(), Close: fixed.FromInt(210, 0)})

	root, _, err := m.Add(common.NewOption(spy.Symbol()))
	require.NoError(t, err)
	call, _, err := m.AddDerived(root, common.NewOptionContract(spy.Symbol(), common.OptionRightCall, fixed.FromInt(200, 0), expiry))
	require.NoError(t, err)
	call.Update(common.Bar{Symbol: call.Symbol(), Close: fixed.Ten})

	require.NoError(t, portfolio.ApplyFill(common.OrderEvent{
		Symbol:       call.Symbol(),
		Status:       common.OrderStatusFilled,
		FillPrice:    fixed.Ten,
		FillQuantity: fixed.NegOne,
	}))
	assert.True(t, portfolio.Invested())

	sim := NewOptionAssignmentSimulation()
	assert.Empty(t, sim.Simulate(m, expiry.Add(-time.Hour)))

	assignments := sim.Simulate(m, expiry.Add(time.Hour))
	require.Len(t, assignments, 1)
	assert.True(t, assignments[0].Proposal.Quantity.Eq(fixed.One))

	require.NoError(t, portfolio.ApplyAssignment(assignments[0]))
	assert.False(t, portfolio.Invested())
}

func TestPortfolio_ApplyFill(t *testing.T) {
	m := newTestManager(t)
	portfolio := NewPortfolio(m, "USD")
	portfolio.SetCash(fixed.FromInt(100000, 0))

	sec, _, err := m.Add(common.NewEquity("SPY", common.MarketUSA))
	require.NoError(t, err)

	require.NoError(t, portfolio.ApplyFill(common.OrderEvent{
		Symbol:       sec.Symbol(),
		Status:       common.OrderStatusFilled,
		FillPrice:    fixed.Hundred,
		FillQuantity: fixed.Ten,
		Fee:          common.CashAmount{Amount: fixed.One, Currency: "USD"},
	}))

	assert.True(t, portfolio.Cash("USD").Eq(fixed.FromInt(98999, 0)))
	assert.True(t, portfolio.TotalFees().Eq(fixed.One))
	assert.True(t, portfolio.Holding(sec.Symbol()).Quantity.Eq(fixed.Ten))
	assert.True(t, portfolio.Contains(sec.Symbol()))

	err = portfolio.ApplyFill(common.OrderEvent{Symbol: common.NewEquity("QQQ", common.MarketUSA), Status: common.OrderStatusFilled})
	assert.True(t, errors.Is(err, ErrSecurityNotFound))
}
