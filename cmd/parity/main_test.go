package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource/historical"
	"github.com/peter-kozarec/parity/pkg/scenario"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PARITY_LOGGING_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	for _, name := range scenario.Names() {
		assert.Contains(t, out, name)
	}
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", scenario.FutureOptionModelsConsistencyName, "--in-memory", "--seed", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, scenario.FutureOptionModelsConsistencyName)
}

func TestRunCommandUnknownScenario(t *testing.T) {
	_, err := execute(t, "run", "does_not_exist", "--in-memory")
	require.ErrorIs(t, err, scenario.ErrUnknownScenario)
}

func TestDumpCommandBinary(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PARITY_DATA_BINARY_DIR", dir)

	csvPath := filepath.Join(dir, "es.csv")
	content := "ts,open,high,low,close,volume,open_interest\n" +
		"2014-01-02 00:00:00Z,1800.25,1810,1795.5,1805,120000,250000\n" +
		"2014-01-03 00:00:00Z,1805,1812.75,1801,1810.5,98000,251000\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o600))

	_, err := execute(t, "dump", csvPath, "--ticker", "ES", "--market", common.MarketCME,
		"--type", "future", "--expiry", "2014-03-21", "--to", "binary")
	require.NoError(t, err)

	symbol := common.NewFutureContract("ES", common.MarketCME, time.Date(2014, 3, 21, 0, 0, 0, 0, time.UTC))
	info, err := os.Stat(historical.NewProvider(dir, nil, nil).Path(symbol))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestParseBar(t *testing.T) {
	symbol := common.NewEquity("SPY", common.MarketUSA)

	tests := []struct {
		name    string
		record  []string
		wantErr bool
		want    common.Bar
	}{
		{
			name:   "without open interest",
			record: []string{"2015-12-24 16:00:00Z", "203.5", "204", "203", "203.75", "1500"},
			want: common.Bar{
				Symbol:    symbol,
				TimeStamp: time.Date(2015, 12, 24, 16, 0, 0, 0, time.UTC),
				Period:    time.Hour,
				Open:      fixed.MustParse("203.5"),
				High:      fixed.MustParse("204"),
				Low:       fixed.MustParse("203"),
				Close:     fixed.MustParse("203.75"),
				Volume:    fixed.MustParse("1500"),
			},
		},
		{
			name:   "with open interest",
			record: []string{"2015-12-24 16:00:00Z", "1", "2", "0.5", "1.5", "10", "77"},
			want: common.Bar{
				Symbol:       symbol,
				TimeStamp:    time.Date(2015, 12, 24, 16, 0, 0, 0, time.UTC),
				Period:       time.Hour,
				Open:         fixed.MustParse("1"),
				High:         fixed.MustParse("2"),
				Low:          fixed.MustParse("0.5"),
				Close:        fixed.MustParse("1.5"),
				Volume:       fixed.MustParse("10"),
				OpenInterest: fixed.MustParse("77"),
			},
		},
		{name: "too few columns", record: []string{"2015-12-24 16:00:00Z", "1", "2"}, wantErr: true},
		{name: "bad timestamp", record: []string{"yesterday", "1", "2", "0.5", "1.5", "10"}, wantErr: true},
		{name: "bad price", record: []string{"2015-12-24 16:00:00Z", "x", "2", "0.5", "1.5", "10"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar, err := parseBar(tt.record, symbol, time.Hour)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, bar)
		})
	}
}
