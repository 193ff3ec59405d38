package custom

import (
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

const (
	BitcoinHistoricalURL = "https://data.nasdaq.com/api/v3/datatables/QDL/BITFINEX.csv?code=BTCUSD"
	BitcoinLiveURL       = "https://www.bitstamp.net/api/ticker/"

	bitcoinDateLayout = "2006-01-02"
)

// Bitcoin reads daily BTCUSD rows from the BITFINEX table, or bitstamp tickers when live.
//
//	code,date,high,low,mid,last,bid,ask,volume
//	BTCUSD,2024-10-08,63248.0,61940.0,62246.5,62245.0,62246.0,62247.0,477.91102114
type Bitcoin struct{}

func (Bitcoin) Source(_ time.Time, live bool) datasource.SubscriptionSource {
	if live {
		return datasource.SubscriptionSource{URL: BitcoinLiveURL, Medium: datasource.MediumRest}
	}
	return datasource.SubscriptionSource{URL: BitcoinHistoricalURL, Medium: datasource.MediumRemoteFile, Sort: true}
}

func (b Bitcoin) Reader(symbol common.Symbol, line string, date time.Time, live bool) common.CustomData {
	if live {
		return b.readLive(symbol, line, date)
	}
	return b.readHistorical(symbol, line)
}

func (Bitcoin) readHistorical(symbol common.Symbol, line string) common.CustomData {
	if strings.TrimSpace(line) == "" || len(line) < 8 || !unicode.IsDigit(rune(line[7])) {
		return common.CustomData{}
	}

	cols := strings.Split(strings.TrimSpace(line), ",")
	if len(cols) < 9 {
		return common.CustomData{}
	}

	ts, err := time.Parse(bitcoinDateLayout, cols[1])
	if err != nil {
		return common.CustomData{}
	}

	fields, ok := parseFields(map[string]string{
		"high":   cols[2],
		"low":    cols[3],
		"mid":    cols[4],
		"close":  cols[5],
		"bid":    cols[6],
		"ask":    cols[7],
		"volume": cols[8],
	})
	if !ok {
		return common.CustomData{}
	}

	return common.CustomData{
		Symbol:    symbol,
		TimeStamp: ts,
		EndTime:   ts.AddDate(0, 0, 1),
		Value:     fields["close"],
		Fields:    fields,
	}
}

type bitstampTicker struct {
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Last      string `json:"last"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Volume    string `json:"volume"`
	VWAP      string `json:"vwap"`
	Timestamp string `json:"timestamp"`
}

func (Bitcoin) readLive(symbol common.Symbol, line string, date time.Time) common.CustomData {
	var ticker bitstampTicker
	if err := json.Unmarshal([]byte(line), &ticker); err != nil {
		return common.CustomData{}
	}

	fields, ok := parseFields(map[string]string{
		"open":           ticker.Open,
		"high":           ticker.High,
		"low":            ticker.Low,
		"close":          ticker.Last,
		"bid":            ticker.Bid,
		"ask":            ticker.Ask,
		"volume":         ticker.Volume,
		"weighted_price": ticker.VWAP,
	})
	if !ok || fields["close"].IsZero() {
		return common.CustomData{}
	}

	return common.CustomData{
		Symbol:    symbol,
		TimeStamp: date,
		EndTime:   date,
		Value:     fields["close"],
		Fields:    fields,
	}
}

func parseFields(raw map[string]string) (map[string]fixed.Point, bool) {
	fields := make(map[string]fixed.Point, len(raw))
	for name, value := range raw {
		p, err := fixed.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, false
		}
		fields[name] = p
	}
	return fields, true
}
