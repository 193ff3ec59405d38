package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/internal/config"
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource/duckdb"
	"github.com/peter-kozarec/parity/pkg/datasource/historical"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

const csvTimeLayout = "2006-01-02 15:04:05.999999999Z07:00"

type dumpFlags struct {
	ticker   string
	market   string
	secType  string
	expiry   string
	period   time.Duration
	target   string
	skipHead bool
}

// newDumpCmd converts csv bars into one of the file based data sources. Each row reads
//
//	timestamp,open,high,low,close,volume[,open_interest]
func newDumpCmd(a *app) *cobra.Command {
	var flags dumpFlags

	cmd := &cobra.Command{
		Use:   "dump <csv...>",
		Short: "Convert csv bars into the binary or duckdb data source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := flags.symbol()
			if err != nil {
				return err
			}

			var bars []common.Bar
			for _, path := range args {
				read, err := readCSVBars(path, symbol, flags.period, flags.skipHead)
				if err != nil {
					return err
				}
				a.logger.Info("csv read", zap.String("file", path), zap.Int("bars", len(read)))
				bars = append(bars, read...)
			}

			switch flags.target {
			case config.DataSourceBinary:
				if a.cfg.Data.BinaryDir == "" {
					return errors.New("data.binary_dir is not configured")
				}
				p := historical.NewProvider(a.cfg.Data.BinaryDir, a.logger, nil)
				defer p.Close()
				if err := p.Write(bars); err != nil {
					return err
				}
				a.logger.Info("dump finished", zap.String("file", p.Path(symbol)), zap.Int("bars", len(bars)))
			case config.DataSourceDuckDB:
				if a.cfg.Data.DuckDBPath == "" {
					return errors.New("data.duckdb_path is not configured")
				}
				reader := duckdb.NewReader(a.cfg.Data.DuckDBPath)
				if err := reader.Connect(); err != nil {
					return err
				}
				defer reader.Close()
				if err := reader.CreateTable(cmd.Context(), a.cfg.Data.Table); err != nil {
					return err
				}
				if err := reader.InsertBars(cmd.Context(), a.cfg.Data.Table, bars); err != nil {
					return err
				}
				a.logger.Info("dump finished", zap.String("table", a.cfg.Data.Table), zap.Int("bars", len(bars)))
			default:
				return fmt.Errorf("unknown dump target %q", flags.target)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.ticker, "ticker", "", "ticker of the bars")
	cmd.Flags().StringVar(&flags.market, "market", common.MarketUSA, "market of the bars")
	cmd.Flags().StringVar(&flags.secType, "type", "equity", "security type of the bars")
	cmd.Flags().StringVar(&flags.expiry, "expiry", "", "contract expiry as yyyy-mm-dd for futures")
	cmd.Flags().DurationVar(&flags.period, "period", 24*time.Hour, "bar period")
	cmd.Flags().StringVar(&flags.target, "to", config.DataSourceBinary, "target: binary or duckdb")
	cmd.Flags().BoolVar(&flags.skipHead, "header", true, "skip the first row of every file")
	_ = cmd.MarkFlagRequired("ticker")
	return cmd
}

func (f dumpFlags) symbol() (common.Symbol, error) {
	kind, err := common.ParseSecurityType(f.secType)
	if err != nil {
		return common.Symbol{}, err
	}
	symbol := common.Symbol{Ticker: f.ticker, Type: kind, Market: f.market}
	if f.expiry != "" && kind == common.SecurityTypeFuture {
		expiry, err := time.Parse(time.DateOnly, f.expiry)
		if err != nil {
			return common.Symbol{}, fmt.Errorf("invalid expiry %q: %w", f.expiry, err)
		}
		symbol = common.NewFutureContract(f.ticker, f.market, expiry)
	}
	return symbol, nil
}

func readCSVBars(path string, symbol common.Symbol, period time.Duration, skipHeader bool) ([]common.Bar, error) {
	file, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var bars []common.Bar
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if line == 1 && skipHeader {
			continue
		}
		bar, err := parseBar(record, symbol, period)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBar(record []string, symbol common.Symbol, period time.Duration) (common.Bar, error) {
	if len(record) < 6 {
		return common.Bar{}, fmt.Errorf("expected at least 6 columns, got %d", len(record))
	}
	ts, err := time.Parse(csvTimeLayout, strings.TrimSpace(record[0]))
	if err != nil {
		return common.Bar{}, err
	}

	values := make([]fixed.Point, 0, 6)
	for _, col := range record[1:min(len(record), 7)] {
		p, err := fixed.Parse(strings.TrimSpace(col))
		if err != nil {
			return common.Bar{}, err
		}
		values = append(values, p)
	}

	bar := common.Bar{
		Symbol:    symbol,
		TimeStamp: ts.UTC(),
		Period:    period,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}
	if len(values) > 5 {
		bar.OpenInterest = values[5]
	}
	return bar, nil
}
