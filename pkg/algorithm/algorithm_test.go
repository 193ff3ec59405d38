package algorithm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/datasource/custom"
	"github.com/peter-kozarec/parity/pkg/mapping"
	"github.com/peter-kozarec/parity/pkg/security"
	"github.com/peter-kozarec/parity/pkg/universe"
	"github.com/peter-kozarec/parity/pkg/utility"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

type fakeProvider struct {
	frames    []common.Frame
	history   map[string][]common.Bar
	contracts []common.Symbol
	opened    *datasource.Request
}

func (p *fakeProvider) Open(_ context.Context, req datasource.Request) (datasource.Feed, error) {
	p.opened = &req
	return datasource.NewFrameFeed(p.frames...), nil
}

func (p *fakeProvider) LastKnown(_ context.Context, sub datasource.Subscription, _ time.Time) []common.Bar {
	return p.history[sub.Symbol.ID()]
}

func (p *fakeProvider) OptionContracts(common.Symbol, time.Time) []common.Symbol {
	return p.contracts
}

type funcAlgorithm struct {
	Base
	initialize func(*Host) error
	onData     func(*Host, common.Slice) error
	onChanges  func(*Host, common.SecurityChanges) error
	onEnd      func(*Host) error
	onOrder    func(*Host, common.OrderEvent) error
}

func (a *funcAlgorithm) Initialize(h *Host) error {
	if a.initialize == nil {
		return nil
	}
	return a.initialize(h)
}

func (a *funcAlgorithm) OnData(h *Host, s common.Slice) error {
	if a.onData == nil {
		return nil
	}
	return a.onData(h, s)
}

func (a *funcAlgorithm) OnSecuritiesChanged(h *Host, c common.SecurityChanges) error {
	if a.onChanges == nil {
		return nil
	}
	return a.onChanges(h, c)
}

func (a *funcAlgorithm) OnEndOfAlgorithm(h *Host) error {
	if a.onEnd == nil {
		return nil
	}
	return a.onEnd(h)
}

func (a *funcAlgorithm) OnOrderEvent(h *Host, ev common.OrderEvent) error {
	if a.onOrder == nil {
		return nil
	}
	return a.onOrder(h, ev)
}

var (
	spy    = common.NewEquity("SPY", common.MarketUSA)
	day1   = time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)
	day2   = time.Date(2024, 1, 3, 16, 0, 0, 0, time.UTC)
	expiry = time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC)
)

func bar(symbol common.Symbol, end time.Time, close int) common.Bar {
	p := fixed.FromInt(close, 0)
	return common.Bar{Symbol: symbol, TimeStamp: end.Add(-24 * time.Hour), Period: 24 * time.Hour, Open: p, High: p, Low: p, Close: p}
}

func quote(strike int, ts time.Time) common.OptionContract {
	return common.OptionContract{
		Symbol:          common.NewOptionContract(spy, common.OptionRightCall, fixed.FromInt(strike, 0), expiry),
		TimeStamp:       ts,
		UnderlyingPrice: fixed.FromInt(470, 0),
		Bid:             fixed.FromInt(4, 0),
		Ask:             fixed.FromInt(6, 0),
	}
}

func dates(h *Host) {
	h.SetStartDate(2024, 1, 2)
	h.SetEndDate(2024, 1, 3)
}

func TestStateMachine(t *testing.T) {
	tests := []struct {
		name  string
		path  []State
		valid bool
	}{
		{"happy path", []State{StateInitialized, StateRunning, StateEnded}, true},
		{"fail while running", []State{StateInitialized, StateRunning, StateFailed}, true},
		{"fail before initialize", []State{StateFailed}, true},
		{"skip initialize", []State{StateRunning}, false},
		{"end before running", []State{StateInitialized, StateEnded}, false},
		{"leave ended", []State{StateInitialized, StateRunning, StateEnded, StateRunning}, false},
		{"fail after end", []State{StateInitialized, StateRunning, StateEnded, StateFailed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			var err error
			for _, to := range tt.path {
				if err = sm.Transition(to); err != nil {
					break
				}
			}
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.path[len(tt.path)-1], sm.Current())
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestStateMachine_Fail(t *testing.T) {
	sm := NewStateMachine()
	require.NoError(t, sm.Transition(StateInitialized))
	require.NoError(t, sm.Transition(StateRunning))
	require.NoError(t, sm.Transition(StateEnded))

	sm.Fail()
	assert.Equal(t, StateEnded, sm.Current())
	assert.Equal(t, StateRunning, sm.Previous())
	assert.Equal(t, 3, sm.Transitions())
}

func TestAssert(t *testing.T) {
	assert.NoError(t, Assert(true, "never"))
	err := Assert(false, "got %d contracts", 0)
	assert.ErrorIs(t, err, ErrAssertion)
	assert.Contains(t, err.Error(), "got 0 contracts")
}

func TestHost_SetAssignmentModel(t *testing.T) {
	h := NewEngine("host", &funcAlgorithm{}, &fakeProvider{}).Host()

	calls := 0
	sim := security.SimulationFunc(func(*security.Manager, time.Time) []security.Assignment {
		calls++
		return nil
	})
	require.NoError(t, h.SetAssignmentModel(sim))

	err := h.SetAssignmentModel(nil)
	assert.ErrorIs(t, err, security.ErrNilModel)
	err = h.SetAssignmentModel((*security.OptionAssignmentSimulation)(nil))
	assert.ErrorIs(t, err, security.ErrNilModel)
	assert.ErrorIs(t, h.SetBrokerageModel((*security.DefaultBrokerageModel)(nil)), security.ErrNilModel)
	assert.ErrorIs(t, h.SetSecurityInitializer((*security.BrokerageModelSecurityInitializer)(nil)), security.ErrNilModel)

	h.assignment.Simulate(h.securities, time.Now())
	assert.Equal(t, 1, calls)
}

func TestHost_AddOption(t *testing.T) {
	h := NewEngine("host", &funcAlgorithm{}, &fakeProvider{}).Host()

	option, err := h.AddOption(spy, WithFilter(func(f *universe.OptionFilter) *universe.OptionFilter { return f.Strikes(-1, 1) }))
	require.NoError(t, err)

	assert.True(t, option.Symbol().IsCanonical())
	assert.True(t, h.Securities().Contains(spy))
	require.NotNil(t, option.Underlying())
	assert.Equal(t, spy.ID(), option.Underlying().Symbol().ID())
	assert.Len(t, h.Subscriptions(), 2)
	assert.Contains(t, h.filters, option.Symbol().ID())

	assert.ErrorIs(t, h.SetFilter(spy, nil), security.ErrSecurityNotFound)
	assert.NoError(t, h.SetFilter(option.Symbol(), nil))
}

func TestHost_Order(t *testing.T) {
	h := NewEngine("host", &funcAlgorithm{}, &fakeProvider{}).Host()

	_, err := h.Order(spy, fixed.One)
	assert.ErrorIs(t, err, security.ErrSecurityNotFound)

	_, err = h.AddEquity("SPY")
	require.NoError(t, err)

	_, err = h.Order(spy, fixed.Zero)
	assert.Error(t, err)

	id, err := h.Order(spy, fixed.FromInt(10, 0), "entry")
	require.NoError(t, err)
	assert.Equal(t, common.OrderId(1), id)
	assert.Len(t, h.orders, 1)
	assert.Equal(t, "entry", h.orders[0].Tag)
}

func TestHost_DatesLockedAfterInitialize(t *testing.T) {
	h := NewEngine("host", &funcAlgorithm{}, &fakeProvider{}).Host()
	dates(h)
	assert.Equal(t, day1.Truncate(24*time.Hour), h.Time())

	h.locked = true
	h.SetStartDate(2020, 1, 1)
	assert.Equal(t, 2024, h.StartDate().Year())
}

func TestEngine_OptionChain(t *testing.T) {
	provider := &fakeProvider{frames: []common.Frame{{
		TimeStamp: day1,
		Bars:      []common.Bar{bar(spy, day1, 470)},
		Quotes:    []common.OptionContract{quote(460, day1), quote(470, day1), quote(480, day1)},
	}}}

	fee := security.NewConstantFeeModel(fixed.FromInt(7, 0), "XYZ")
	var events []string
	var root *security.Security

	algo := &funcAlgorithm{
		initialize: func(h *Host) error {
			dates(h)
			var err error
			if root, err = h.AddOption(spy, WithFilter(func(f *universe.OptionFilter) *universe.OptionFilter { return f.Strikes(0, 0) })); err != nil {
				return err
			}
			return root.SetFeeModel(fee)
		},
		onChanges: func(h *Host, c common.SecurityChanges) error {
			events = append(events, "changes")
			assert.Len(t, c.Added, 3)
			return nil
		},
		onData: func(h *Host, s common.Slice) error {
			events = append(events, "data")
			chain, ok := s.OptionChain(root.Symbol())
			if !assert.True(t, ok) || !assert.Equal(t, 1, chain.Len()) {
				return nil
			}
			assert.Equal(t, "470", chain.Contracts[0].Symbol.Strike.String())
			assert.Equal(t, "470", chain.Underlying.Close.String())

			contract := h.Securities().MustGet(chain.Contracts[0].Symbol)
			assert.Same(t, fee, contract.FeeModel())
			assert.Equal(t, "5", contract.Price().String())
			return nil
		},
	}

	engine := NewEngine("options", algo, provider, WithLogger(zaptest.NewLogger(t)))
	rep, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"changes", "data"}, events)
	assert.Equal(t, StateEnded, engine.State())
	assert.Equal(t, "ended", rep.State)
	assert.Equal(t, int64(2), rep.DataPoints)
	require.NotNil(t, provider.opened)
	assert.Len(t, provider.opened.Subscriptions, 2)
}

func TestEngine_ContinuousFutureMapping(t *testing.T) {
	mar := common.NewFutureContract("ES", common.MarketCME, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	jun := common.NewFutureContract("ES", common.MarketCME, time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC))
	d1 := time.Date(2024, 3, 14, 16, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)

	provider := &fakeProvider{frames: []common.Frame{
		{TimeStamp: d1, Bars: []common.Bar{bar(mar, d1, 5000), bar(jun, d1, 5050)}},
		{TimeStamp: d2, Bars: []common.Bar{bar(mar, d2, 5010), bar(jun, d2, 5060)}},
	}}

	slippage := security.NewConstantSlippageModel(fixed.FromInt(3, 0))
	var continuous *security.Security
	var changed []common.SymbolChangedEvent

	algo := &funcAlgorithm{
		initialize: func(h *Host) error {
			h.SetStartDate(2024, 3, 14)
			h.SetEndDate(2024, 3, 15)
			var err error
			continuous, err = h.AddFuture("ES", WithMapping(mapping.MappingModeLastTradingDay), WithNormalization(mapping.NormalizationModeRaw))
			if err != nil {
				return err
			}
			return continuous.SetSlippageModel(slippage)
		},
		onData: func(h *Host, s common.Slice) error {
			assert.Equal(t, []string{continuous.Symbol().ID()}, s.Keys())
			mapped := h.Securities().MustGet(continuous.Mapped())
			assert.Same(t, slippage, mapped.SlippageModel())

			if ev, ok := s.SymbolChanged(continuous.Symbol()); ok {
				changed = append(changed, ev)
				b, _ := s.Bar(continuous.Symbol())
				assert.Equal(t, "5060", b.Close.String())
			}
			return nil
		},
	}

	rep, err := NewEngine("futures", algo, provider).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, changed, 1)
	assert.Equal(t, mar.ID(), changed[0].OldSymbol.ID())
	assert.Equal(t, jun.ID(), changed[0].NewSymbol.ID())
	assert.Equal(t, jun.ID(), continuous.Mapped().ID())
	assert.Equal(t, 1, rep.Mappings)
}

func TestEngine_OrdersAndEnd(t *testing.T) {
	provider := &fakeProvider{frames: []common.Frame{
		{TimeStamp: day1, Bars: []common.Bar{bar(spy, day1, 50)}},
		{TimeStamp: day2, Bars: []common.Bar{bar(spy, day2, 60)}},
	}}

	var fills []common.OrderEvent
	ends := 0
	algo := &funcAlgorithm{
		initialize: func(h *Host) error {
			dates(h)
			h.SetCash(fixed.FromInt(1000, 0))
			_, err := h.AddEquity("SPY")
			return err
		},
		onData: func(h *Host, s common.Slice) error {
			if h.Portfolio().Invested() || len(h.orders) > 0 {
				return nil
			}
			_, err := h.Order(spy, fixed.FromInt(10, 0))
			return err
		},
		onOrder: func(h *Host, ev common.OrderEvent) error {
			fills = append(fills, ev)
			return nil
		},
		onEnd: func(h *Host) error {
			ends++
			return Assert(h.Portfolio().Invested(), "portfolio not invested")
		},
	}

	rep, err := NewEngine("orders", algo, provider).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, fills, 1)
	assert.Equal(t, common.OrderStatusFilled, fills[0].Status)
	assert.Equal(t, "50", fills[0].FillPrice.String())
	assert.Equal(t, 1, ends)
	assert.Equal(t, int64(1), rep.TotalOrders)
	assert.Equal(t, "1", rep.TotalFees.String())
	assert.Equal(t, "ended", rep.State)
}

// buyOnce places one order and does not handle order events.
type buyOnce struct {
	Base
	placed bool
}

func (a *buyOnce) Initialize(h *Host) error {
	dates(h)
	h.SetCash(fixed.FromInt(1000, 0))
	_, err := h.AddEquity("SPY")
	return err
}

func (a *buyOnce) OnData(h *Host, _ common.Slice) error {
	if a.placed {
		return nil
	}
	a.placed = true
	_, err := h.Order(spy, fixed.FromInt(2, 0))
	return err
}

type orderRecorder struct {
	orders []common.OrderEvent
}

func (r *orderRecorder) RecordOrderEvent(_ context.Context, _ utility.ExecutionID, ev common.OrderEvent) error {
	r.orders = append(r.orders, ev)
	return nil
}

func (r *orderRecorder) RecordSymbolChanged(context.Context, utility.ExecutionID, common.SymbolChangedEvent) error {
	return nil
}

func TestEngine_OrdersRecordedWithoutHandler(t *testing.T) {
	provider := &fakeProvider{frames: []common.Frame{
		{TimeStamp: day1, Bars: []common.Bar{bar(spy, day1, 50)}},
		{TimeStamp: day2, Bars: []common.Bar{bar(spy, day2, 60)}},
	}}
	rec := &orderRecorder{}

	rep, err := NewEngine("no order handler", &buyOnce{}, provider, WithRecorder(rec)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rec.orders, 1)
	assert.Equal(t, common.OrderStatusFilled, rec.orders[0].Status)
	assert.Equal(t, int64(1), rep.TotalOrders)
}

func TestEngine_Failures(t *testing.T) {
	frames := []common.Frame{{TimeStamp: day1, Bars: []common.Bar{bar(spy, day1, 50)}}}
	boom := errors.New("boom")

	tests := []struct {
		name   string
		algo   *funcAlgorithm
		target error
		opened bool
	}{
		{
			name:   "initialize",
			algo:   &funcAlgorithm{initialize: func(*Host) error { return boom }},
			target: boom,
		},
		{
			name:   "missing dates",
			algo:   &funcAlgorithm{},
			target: nil,
		},
		{
			name: "on data assertion",
			algo: &funcAlgorithm{
				initialize: func(h *Host) error { dates(h); _, err := h.AddEquity("SPY"); return err },
				onData:     func(*Host, common.Slice) error { return Assert(false, "contract models differ") },
			},
			target: ErrAssertion,
			opened: true,
		},
		{
			name: "end of algorithm",
			algo: &funcAlgorithm{
				initialize: func(h *Host) error { dates(h); _, err := h.AddEquity("SPY"); return err },
				onEnd:      func(*Host) error { return Assert(false, "models were not checked") },
			},
			target: ErrAssertion,
			opened: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{frames: frames}
			engine := NewEngine(tt.name, tt.algo, provider)

			rep, err := engine.Run(context.Background())
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Equal(t, StateFailed, engine.State())
			assert.Equal(t, "failed", rep.State)
			assert.True(t, rep.Failed())
			assert.Equal(t, tt.opened, provider.opened != nil)
		})
	}
}

func TestEngine_AssignmentSimulationRunsPerFrame(t *testing.T) {
	provider := &fakeProvider{frames: []common.Frame{
		{TimeStamp: day1, Bars: []common.Bar{bar(spy, day1, 50)}},
		{TimeStamp: day2, Bars: []common.Bar{bar(spy, day2, 60)}},
	}}

	calls := 0
	algo := &funcAlgorithm{
		initialize: func(h *Host) error {
			dates(h)
			if _, err := h.AddEquity("SPY", WithResolution(time.Hour)); err != nil {
				return err
			}
			if err := h.SetAssignmentModel(nil); !errors.Is(err, security.ErrNilModel) {
				return errors.New("nil assignment model accepted")
			}
			return h.SetAssignmentModel(security.SimulationFunc(func(*security.Manager, time.Time) []security.Assignment {
				calls++
				return nil
			}))
		},
	}

	_, err := NewEngine("assignment", algo, provider).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, time.Hour, provider.opened.Subscriptions[0].Resolution)
}

func TestEngine_CustomDataSeeded(t *testing.T) {
	btc := common.NewCustom("BTC")
	record := common.CustomData{
		Symbol:    btc,
		TimeStamp: day1.Add(-24 * time.Hour),
		EndTime:   day1,
		Value:     fixed.FromInt(7000, 0),
	}
	provider := &fakeProvider{
		frames:  []common.Frame{{TimeStamp: day1, Custom: []common.CustomData{record}}},
		history: map[string][]common.Bar{btc.ID(): {bar(btc, day1.Add(-24*time.Hour), 6900)}},
	}

	warmed := false
	algo := &funcAlgorithm{
		initialize: func(h *Host) error {
			dates(h)
			if err := h.SetSecurityInitializer(security.FuncSecurityInitializer(func(sec *security.Security) error {
				security.FuncSeeder(h.LastKnownPrices).Seed(sec)
				return nil
			})); err != nil {
				return err
			}
			_, err := h.AddData("BTC", custom.Bitcoin{})
			return err
		},
		onChanges: func(h *Host, c common.SecurityChanges) error {
			for _, symbol := range c.Added {
				sec := h.Securities().MustGet(symbol)
				if err := Assert(sec.HasData(), "%s was not warmed up", symbol); err != nil {
					return err
				}
				warmed = true
			}
			return nil
		},
		onData: func(h *Host, s common.Slice) error {
			data, ok := s.CustomData(btc)
			assert.True(t, ok)
			assert.Equal(t, "7000", data.Value.String())
			assert.Equal(t, "7000", h.Securities().MustGet(btc).Price().String())
			return nil
		},
	}

	_, err := NewEngine("custom", algo, provider).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, warmed)
}
