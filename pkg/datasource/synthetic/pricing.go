package synthetic

import (
	"math"
)

const riskFreeRate = 0.01

type quote struct {
	price float64
	delta float64
	gamma float64
	vega  float64
	theta float64
	rho   float64
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// blackScholes prices a european option. Vega and rho are per one percent, theta per calendar day.
func blackScholes(spot, strike, years, sigma float64, call bool) quote {
	sq := math.Sqrt(years)
	d1 := (math.Log(spot/strike) + (riskFreeRate+sigma*sigma/2)*years) / (sigma * sq)
	d2 := d1 - sigma*sq
	discount := math.Exp(-riskFreeRate * years)

	q := quote{
		gamma: normPDF(d1) / (spot * sigma * sq),
		vega:  spot * normPDF(d1) * sq / 100,
	}
	decay := -(spot * normPDF(d1) * sigma) / (2 * sq)

	if call {
		q.price = spot*normCDF(d1) - strike*discount*normCDF(d2)
		q.delta = normCDF(d1)
		q.theta = (decay - riskFreeRate*strike*discount*normCDF(d2)) / 365
		q.rho = strike * years * discount * normCDF(d2) / 100
	} else {
		q.price = strike*discount*normCDF(-d2) - spot*normCDF(-d1)
		q.delta = normCDF(d1) - 1
		q.theta = (decay + riskFreeRate*strike*discount*normCDF(-d2)) / 365
		q.rho = -strike * years * discount * normCDF(-d2) / 100
	}
	return q
}
