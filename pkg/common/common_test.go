package common

import (
	"testing"
	"time"

	"github.com/peter-kozarec/parity/pkg/utility/fixed"
	"github.com/stretchr/testify/assert"
)

func TestSymbol_ID(t *testing.T) {
	goog := NewEquity("GOOG", MarketUSA)
	expiry := time.Date(2016, 1, 15, 0, 0, 0, 0, time.UTC)
	es := NewFutureContract("ES", MarketCME, expiry)

	tests := []struct {
		name   string
		symbol Symbol
		want   string
	}{
		{"equity", goog, "equity:usa:GOOG"},
		{"canonical option", NewOption(goog), "option:usa:GOOG"},
		{"option contract", NewOptionContract(goog, OptionRightPut, fixed.FromInt(750, 0), expiry), "option:usa:GOOG:20160115:P750"},
		{"continuous future", NewFuture("ES", MarketCME), "future:cme:ES"},
		{"future contract", es, "future:cme:ES:20160115"},
		{"canonical future option", NewFutureOption(es), "future_option:cme:ES@20160115"},
		{"custom", NewCustom("BTC"), "base:custom:BTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.symbol.ID())
		})
	}
}

func TestSymbol_Canonical(t *testing.T) {
	goog := NewEquity("GOOG", MarketUSA)
	contract := NewOptionContract(goog, OptionRightCall, fixed.FromInt(800, 0), time.Date(2016, 1, 15, 13, 0, 0, 0, time.UTC))

	assert.False(t, contract.IsCanonical())
	assert.True(t, contract.Canonical().IsCanonical())
	assert.True(t, contract.Canonical().Equal(NewOption(goog)))
	assert.False(t, goog.IsCanonical())
	assert.Equal(t, 0, contract.Expiry.Hour())
}

func TestSlice_Keys(t *testing.T) {
	s := NewSlice(time.Now())
	assert.Empty(t, s.Keys())
	assert.False(t, s.HasData())

	es := NewFuture("ES", MarketCME)
	btc := NewCustom("BTC")
	s.Bars[es.ID()] = Bar{Symbol: es}
	s.Custom[btc.ID()] = CustomData{Symbol: btc}
	s.SymbolChangedEvents[es.ID()] = SymbolChangedEvent{Symbol: es}

	assert.Equal(t, []string{btc.ID(), es.ID()}, s.Keys())

	_, ok := s.SymbolChanged(es)
	assert.True(t, ok)
}

func TestCustomData_IsEmpty(t *testing.T) {
	assert.True(t, CustomData{}.IsEmpty())
	assert.False(t, CustomData{Symbol: NewCustom("BTC")}.IsEmpty())
}

func TestThirdFriday(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	assert.Equal(t, date(2015, 12, 18), ThirdFriday(2015, time.December))
	assert.Equal(t, date(2016, 1, 15), ThirdFriday(2016, time.January))
	assert.Equal(t, date(2024, 3, 15), ThirdFriday(2024, time.March))
}
