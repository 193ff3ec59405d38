package common

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

type Greeks struct {
	Delta fixed.Point `json:"delta"`
	Gamma fixed.Point `json:"gamma"`
	Vega  fixed.Point `json:"vega"`
	Theta fixed.Point `json:"theta"`
	Rho   fixed.Point `json:"rho"`
}

type OptionContract struct {
	Symbol            Symbol      `json:"symbol"`
	TimeStamp         time.Time   `json:"ts"`
	UnderlyingPrice   fixed.Point `json:"underlying_price"`
	Bid               fixed.Point `json:"bid"`
	Ask               fixed.Point `json:"ask"`
	Last              fixed.Point `json:"last"`
	Volume            fixed.Point `json:"volume"`
	OpenInterest      fixed.Point `json:"open_interest"`
	ImpliedVolatility fixed.Point `json:"implied_volatility"`
	Greeks            Greeks      `json:"greeks"`
}

func (c OptionContract) Mid() fixed.Point {
	return c.Bid.Add(c.Ask).DivInt(2)
}

// OptionChain is the snapshot of contracts of one canonical option symbol at one point in time.
type OptionChain struct {
	Canonical  Symbol           `json:"canonical"`
	TimeStamp  time.Time        `json:"ts"`
	Underlying Bar              `json:"underlying"`
	Contracts  []OptionContract `json:"contracts"`
}

func (c OptionChain) Len() int {
	return len(c.Contracts)
}

func (c OptionChain) Contract(symbol Symbol) (OptionContract, bool) {
	id := symbol.ID()
	for _, contract := range c.Contracts {
		if contract.Symbol.ID() == id {
			return contract, true
		}
	}
	return OptionContract{}, false
}
