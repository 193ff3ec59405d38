package security

import (
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

type SymbolProperties struct {
	Description           string
	QuoteCurrency         string
	ContractMultiplier    fixed.Point
	MinimumPriceVariation fixed.Point
	LotSize               fixed.Point
}

type propertiesKey struct {
	market string
	ticker string
	kind   common.SecurityType
}

// SymbolPropertiesStore resolves contract specifications by market and ticker, falling back to
// per security type defaults.
type SymbolPropertiesStore struct {
	entries map[propertiesKey]SymbolProperties
}

func NewSymbolPropertiesStore() *SymbolPropertiesStore {
	s := &SymbolPropertiesStore{entries: make(map[propertiesKey]SymbolProperties)}

	s.Set(common.MarketCME, "ES", common.SecurityTypeFuture, future("E-mini S&P 500", "USD", 50, "0.25"))
	s.Set(common.MarketCME, "DC", common.SecurityTypeFuture, future("Class III Milk", "USD", 2000, "0.01"))
	s.Set(common.MarketCME, "DC", common.SecurityTypeFutureOption, future("Class III Milk options", "USD", 2000, "0.01"))
	s.Set(common.MarketCME, "LE", common.SecurityTypeFuture, future("Live Cattle", "USD", 400, "0.025"))
	s.Set(common.MarketCME, "GF", common.SecurityTypeFuture, future("Feeder Cattle", "USD", 500, "0.025"))
	s.Set(common.MarketCME, "HE", common.SecurityTypeFuture, future("Lean Hogs", "USD", 400, "0.025"))
	s.Set(common.MarketCBOT, "ZS", common.SecurityTypeFuture, future("Soybeans", "USD", 50, "0.25"))
	s.Set(common.MarketCBOT, "ZW", common.SecurityTypeFuture, future("Wheat", "USD", 50, "0.25"))
	s.Set(common.MarketCBOT, "ZC", common.SecurityTypeFuture, future("Corn", "USD", 50, "0.25"))
	s.Set(common.MarketCBOT, "ZO", common.SecurityTypeFuture, future("Oats", "USD", 50, "0.25"))
	s.Set(common.MarketNYMEX, "NG", common.SecurityTypeFuture, future("Natural Gas", "USD", 10000, "0.001"))
	s.Set(common.MarketNYMEX, "HO", common.SecurityTypeFuture, future("Heating Oil", "USD", 42000, "0.0001"))
	s.Set(common.MarketNYMEX, "PL", common.SecurityTypeFuture, future("Platinum", "USD", 50, "0.1"))
	s.Set(common.MarketCOMEX, "GC", common.SecurityTypeFuture, future("Gold", "USD", 100, "0.1"))
	s.Set(common.MarketCOMEX, "SI", common.SecurityTypeFuture, future("Silver", "USD", 5000, "0.005"))
	s.Set(common.MarketICE, "KC", common.SecurityTypeFuture, future("Coffee", "USD", 37500, "0.05"))
	s.Set(common.MarketICE, "CC", common.SecurityTypeFuture, future("Cocoa", "USD", 10, "1"))
	s.Set(common.MarketEUREX, "FESX", common.SecurityTypeFuture, future("EURO STOXX 50", "EUR", 10, "1"))

	return s
}

func future(description, currency string, multiplier int, tick string) SymbolProperties {
	return SymbolProperties{
		Description:           description,
		QuoteCurrency:         currency,
		ContractMultiplier:    fixed.FromInt(multiplier, 0),
		MinimumPriceVariation: fixed.MustParse(tick),
		LotSize:               fixed.One,
	}
}

func (s *SymbolPropertiesStore) Set(market, ticker string, kind common.SecurityType, props SymbolProperties) {
	s.entries[propertiesKey{market: market, ticker: ticker, kind: kind}] = props
}

func (s *SymbolPropertiesStore) Get(symbol common.Symbol) SymbolProperties {
	if props, ok := s.entries[propertiesKey{market: symbol.Market, ticker: symbol.Ticker, kind: symbol.Type}]; ok {
		return props
	}
	return defaultProperties(symbol)
}

func defaultProperties(symbol common.Symbol) SymbolProperties {
	props := SymbolProperties{
		Description:           symbol.Ticker,
		QuoteCurrency:         "USD",
		ContractMultiplier:    fixed.One,
		MinimumPriceVariation: fixed.MustParse("0.01"),
		LotSize:               fixed.One,
	}
	switch symbol.Type {
	case common.SecurityTypeOption:
		props.ContractMultiplier = fixed.Hundred
	case common.SecurityTypeCrypto, common.SecurityTypeBase:
		props.LotSize = fixed.MustParse("0.00000001")
	}
	return props
}
