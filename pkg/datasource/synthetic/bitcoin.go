package synthetic

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/datasource/custom"
)

const bitcoinHeader = "code,date,high,low,mid,last,bid,ask,volume"

// NewBitcoinLines produces a daily BTCUSD table between from and to in the BITFINEX csv layout,
// newest row first like the published files.
func NewBitcoinLines(seed int64, from, to time.Time) custom.LineSource {
	return custom.LineSourceFunc(func(ctx context.Context, _ datasource.SubscriptionSource) ([]string, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		g := NewGenerator(seed)
		s := &series{rng: g.rng("custom:BTC"), sigma: profileOf("BTC").sigma, open: profileOf("BTC").price, close: profileOf("BTC").price}

		var rows []string
		for day := truncateDay(from); !day.After(truncateDay(to)); day = day.AddDate(0, 0, 1) {
			s.advance(1.0 / 365)
			last := s.close
			high := max(s.open, last) * 1.01
			low := min(s.open, last) * 0.99
			rows = append(rows, fmt.Sprintf("BTCUSD,%s,%s,%s,%s,%s,%s,%s,%s",
				day.Format("2006-01-02"),
				price(high), price(low), price((high+low)/2), price(last),
				price(last-0.5), price(last+0.5),
				strconv.FormatFloat(math.Round(5000*(1+math.Abs(s.z)))/10, 'f', 1, 64)))
		}

		lines := make([]string, 0, len(rows)+1)
		lines = append(lines, bitcoinHeader)
		for i := len(rows) - 1; i >= 0; i-- {
			lines = append(lines, rows[i])
		}
		return lines, nil
	})
}

func price(x float64) string {
	return strconv.FormatFloat(math.Round(x*10)/10, 'f', 1, 64)
}
