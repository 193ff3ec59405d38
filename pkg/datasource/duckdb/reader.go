package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

const (
	readerComponentName = "datasource.duckdb.reader"

	barColumns = `ts, period_ns, ticker, type, market, expiry, option_right, strike, underlying_expiry,
		open, high, low, close, volume, open_interest`
)

type Reader struct {
	dataSourceName string
	db             *sql.DB
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{
		dataSourceName: dataSourceName,
	}
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

// CreateTable creates the bar table if missing. ts is the bar end time.
func (r *Reader) CreateTable(ctx context.Context, table string) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (
		ts TIMESTAMP NOT NULL,
		period_ns BIGINT NOT NULL,
		ticker VARCHAR NOT NULL,
		type VARCHAR NOT NULL,
		market VARCHAR NOT NULL,
		expiry DATE,
		option_right VARCHAR,
		strike DOUBLE,
		underlying_expiry DATE,
		open DOUBLE, high DOUBLE, low DOUBLE, close DOUBLE,
		volume DOUBLE, open_interest DOUBLE)`, table)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("error creating table %s: %w", table, err)
	}
	return nil
}

func (r *Reader) InsertBars(ctx context.Context, table string, bars []common.Bar) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table, barColumns))
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, bar := range bars {
		row := symbolRow(bar.Symbol)
		_, err := stmt.ExecContext(ctx,
			bar.EndTime().UTC(), int64(bar.Period), bar.Symbol.Ticker, bar.Symbol.Type.String(), bar.Symbol.Market,
			row.expiry, row.right, row.strike, row.underlyingExpiry,
			toFloat(bar.Open), toFloat(bar.High), toFloat(bar.Low), toFloat(bar.Close), toFloat(bar.Volume), toFloat(bar.OpenInterest))
		if err != nil {
			return fmt.Errorf("error inserting bar: %w", err)
		}
	}
	return tx.Commit()
}

// LoadBars streams the bars ending between from and to, ordered by time.
func (r *Reader) LoadBars(ctx context.Context, table string, from, to time.Time, handler func(bar common.Bar) error) error {
	query := fmt.Sprintf(`SELECT %s FROM "%s" WHERE ts BETWEEN ? AND ? ORDER BY ts, ticker, type`, barColumns, table)

	rows, err := r.db.QueryContext(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return fmt.Errorf("error preparing query: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		if err := handler(bar); err != nil {
			return fmt.Errorf("error processing bar: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error scanning rows: %w", err)
	}
	return nil
}

// LastBar returns the latest bar of symbol ending before t.
func (r *Reader) LastBar(ctx context.Context, table string, symbol common.Symbol, before time.Time) (common.Bar, bool, error) {
	expiry := ""
	if !symbol.Expiry.IsZero() {
		expiry = symbol.Expiry.Format("20060102")
	}
	query := fmt.Sprintf(`SELECT %s FROM "%s"
		WHERE ticker = ? AND type = ? AND market = ? AND COALESCE(strftime(expiry, '%%Y%%m%%d'), '') = ? AND ts < ?
		ORDER BY ts DESC LIMIT 1`, barColumns, table)

	rows, err := r.db.QueryContext(ctx, query, symbol.Ticker, symbol.Type.String(), symbol.Market, expiry, before.UTC())
	if err != nil {
		return common.Bar{}, false, fmt.Errorf("error preparing query: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	if !rows.Next() {
		return common.Bar{}, false, rows.Err()
	}
	bar, err := scanBar(rows)
	if err != nil {
		return common.Bar{}, false, fmt.Errorf("error scanning row: %w", err)
	}
	return bar, true, nil
}

// OptionContracts lists the option contracts on underlying traded on date.
func (r *Reader) OptionContracts(ctx context.Context, table string, underlying common.Symbol, date time.Time) ([]common.Symbol, error) {
	optionType := common.SecurityTypeOption
	if underlying.Type == common.SecurityTypeFuture {
		optionType = common.SecurityTypeFutureOption
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	query := fmt.Sprintf(`SELECT DISTINCT %s FROM "%s"
		WHERE ticker = ? AND type = ? AND market = ? AND ts >= ? AND ts < ?
		ORDER BY expiry, strike, option_right`, barColumns, table)

	rows, err := r.db.QueryContext(ctx, query, underlying.Ticker, optionType.String(), underlying.Market, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("error preparing query: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	seen := make(map[string]struct{})
	var out []common.Symbol
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		sym := bar.Symbol
		if underlying.Type == common.SecurityTypeFuture && !sym.Underlying.Equal(underlying) {
			continue
		}
		if _, ok := seen[sym.ID()]; ok {
			continue
		}
		seen[sym.ID()] = struct{}{}
		out = append(out, sym)
	}
	return out, rows.Err()
}

type symbolColumns struct {
	expiry           sql.NullTime
	right            sql.NullString
	strike           sql.NullFloat64
	underlyingExpiry sql.NullTime
}

func symbolRow(s common.Symbol) symbolColumns {
	var row symbolColumns
	if !s.Expiry.IsZero() {
		row.expiry = sql.NullTime{Time: s.Expiry, Valid: true}
	}
	if s.Type.IsOption() && !s.IsCanonical() {
		row.right = sql.NullString{String: s.Right.String(), Valid: true}
		row.strike = sql.NullFloat64{Float64: toFloat(s.Strike), Valid: true}
	}
	if s.Type == common.SecurityTypeFutureOption && s.Underlying != nil && !s.Underlying.Expiry.IsZero() {
		row.underlyingExpiry = sql.NullTime{Time: s.Underlying.Expiry, Valid: true}
	}
	return row
}

func scanBar(rows *sql.Rows) (common.Bar, error) {
	var (
		end        time.Time
		periodNs   int64
		ticker     string
		typeName   string
		market     string
		row        symbolColumns
		o, h, l, c float64
		volume, oi sql.NullFloat64
	)
	if err := rows.Scan(&end, &periodNs, &ticker, &typeName, &market, &row.expiry, &row.right, &row.strike, &row.underlyingExpiry,
		&o, &h, &l, &c, &volume, &oi); err != nil {
		return common.Bar{}, err
	}

	secType, err := common.ParseSecurityType(typeName)
	if err != nil {
		return common.Bar{}, err
	}

	period := time.Duration(periodNs)
	return common.Bar{
		Source:       readerComponentName,
		Symbol:       buildSymbol(ticker, secType, market, row),
		TimeStamp:    end.UTC().Add(-period),
		Period:       period,
		Open:         fixed.FromFloat64(o),
		High:         fixed.FromFloat64(h),
		Low:          fixed.FromFloat64(l),
		Close:        fixed.FromFloat64(c),
		Volume:       fixed.FromFloat64(volume.Float64),
		OpenInterest: fixed.FromFloat64(oi.Float64),
	}, nil
}

func buildSymbol(ticker string, secType common.SecurityType, market string, row symbolColumns) common.Symbol {
	right := common.OptionRightCall
	if row.right.String == common.OptionRightPut.String() {
		right = common.OptionRightPut
	}
	strike := fixed.FromFloat64(row.strike.Float64)

	switch secType {
	case common.SecurityTypeFuture:
		if !row.expiry.Valid {
			return common.NewFuture(ticker, market)
		}
		return common.NewFutureContract(ticker, market, row.expiry.Time)
	case common.SecurityTypeOption:
		underlying := common.NewEquity(ticker, market)
		if !row.expiry.Valid {
			return common.NewOption(underlying)
		}
		return common.NewOptionContract(underlying, right, strike, row.expiry.Time)
	case common.SecurityTypeFutureOption:
		future := common.NewFutureContract(ticker, market, row.underlyingExpiry.Time)
		if !row.expiry.Valid {
			return common.NewFutureOption(future)
		}
		return common.NewFutureOptionContract(future, right, strike, row.expiry.Time)
	default:
		return common.Symbol{Ticker: ticker, Type: secType, Market: market}
	}
}

func toFloat(p fixed.Point) float64 {
	v, _ := p.Float64()
	return v
}
