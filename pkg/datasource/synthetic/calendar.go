package synthetic

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
)

const (
	optionExpiryCount = 9
	listingHorizon    = 420
	rollWindow        = 10
)

var (
	quarterly = []time.Month{time.March, time.June, time.September, time.December}
	monthly   = []time.Month{
		time.January, time.February, time.March, time.April, time.May, time.June,
		time.July, time.August, time.September, time.October, time.November, time.December,
	}
)

type profile struct {
	price  float64
	sigma  float64
	months []time.Month
	peakOI float64
}

var defaultProfile = profile{price: 100, sigma: 0.2, months: quarterly, peakOI: 50_000}

var profiles = map[string]profile{
	"GOOG": {price: 748.40, sigma: 0.25},
	"SPY":  {price: 205.68, sigma: 0.15},
	"BTC":  {price: 7300, sigma: 0.6},
	"ES":   {price: 1600, sigma: 0.15, months: quarterly, peakOI: 2_800_000},
	"FESX": {price: 3800, sigma: 0.18, months: quarterly, peakOI: 2_500_000},
	"DC":   {price: 16.5, sigma: 0.2, months: monthly, peakOI: 30_000},
	"LE":   {price: 120, sigma: 0.15, months: []time.Month{time.February, time.April, time.June, time.August, time.October, time.December}, peakOI: 150_000},
	"GF":   {price: 145, sigma: 0.15, months: []time.Month{time.January, time.March, time.April, time.May, time.August, time.September, time.October, time.November}, peakOI: 25_000},
	"HE":   {price: 65, sigma: 0.25, months: []time.Month{time.February, time.April, time.May, time.June, time.July, time.August, time.October, time.December}, peakOI: 120_000},
	"ZS":   {price: 900, sigma: 0.18, months: []time.Month{time.January, time.March, time.May, time.July, time.August, time.September, time.November}, peakOI: 400_000},
	"ZW":   {price: 520, sigma: 0.22, months: []time.Month{time.March, time.May, time.July, time.September, time.December}, peakOI: 200_000},
	"ZC":   {price: 380, sigma: 0.2, months: []time.Month{time.March, time.May, time.July, time.September, time.December}, peakOI: 700_000},
	"ZO":   {price: 280, sigma: 0.25, months: []time.Month{time.March, time.May, time.July, time.September, time.December}, peakOI: 5_000},
	"NG":   {price: 3.5, sigma: 0.45, months: monthly, peakOI: 300_000},
	"HO":   {price: 2.1, sigma: 0.3, months: monthly, peakOI: 150_000},
	"GC":   {price: 1250, sigma: 0.12, months: []time.Month{time.February, time.April, time.June, time.August, time.October, time.December}, peakOI: 500_000},
	"SI":   {price: 15.5, sigma: 0.2, months: []time.Month{time.March, time.May, time.July, time.September, time.December}, peakOI: 150_000},
	"PL":   {price: 850, sigma: 0.2, months: []time.Month{time.January, time.April, time.July, time.October}, peakOI: 80_000},
	"KC":   {price: 110, sigma: 0.25, months: []time.Month{time.March, time.May, time.July, time.September, time.December}, peakOI: 120_000},
	"CC":   {price: 2300, sigma: 0.25, months: []time.Month{time.March, time.May, time.July, time.September, time.December}, peakOI: 150_000},
}

func profileOf(ticker string) profile {
	p, ok := profiles[ticker]
	if !ok {
		return defaultProfile
	}
	if p.months == nil {
		p.months = defaultProfile.months
	}
	if p.peakOI == 0 {
		p.peakOI = defaultProfile.peakOI
	}
	return p
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func daysBetween(from, to time.Time) int {
	return int(truncateDay(to).Sub(truncateDay(from)).Hours() / 24)
}

// optionExpiries lists the monthly expiries not yet passed on date.
func optionExpiries(date time.Time) []time.Time {
	day := truncateDay(date)
	out := make([]time.Time, 0, optionExpiryCount)
	y, m := day.Year(), day.Month()
	for len(out) < optionExpiryCount {
		if e := common.ThirdFriday(y, m); !e.Before(day) {
			out = append(out, e)
		}
		if m++; m > time.December {
			m = time.January
			y++
		}
	}
	return out
}

// listedContracts returns the future contracts of the ticker trading on date, nearest first.
func listedContracts(ticker, market string, date time.Time) []common.Symbol {
	day := truncateDay(date)
	months := profileOf(ticker).months

	var out []common.Symbol
	for y := day.Year(); y <= day.Year()+2; y++ {
		for _, m := range months {
			expiry := common.ThirdFriday(y, m)
			dte := daysBetween(day, expiry)
			if dte < 0 || dte > listingHorizon {
				continue
			}
			out = append(out, common.NewFutureContract(ticker, market, expiry))
		}
	}
	return out
}

// openInterest grows as a contract nears expiry and collapses inside the roll window, so the
// next contract takes over a few days before the front one expires.
func openInterest(peak float64, dte int) float64 {
	if dte > rollWindow {
		return peak * (1 - float64(dte)/500)
	}
	return peak * float64(max(dte, 1)) / 100
}

func strikeStep(price float64) float64 {
	switch {
	case price < 25:
		return 0.5
	case price < 200:
		return 5
	case price < 1000:
		return 10
	default:
		return 50
	}
}
