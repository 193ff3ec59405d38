package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/internal/config"
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/report"
	"github.com/peter-kozarec/parity/pkg/utility"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

const storeComponentName = "store.sqlite"

var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	eid          TEXT PRIMARY KEY,
	scenario     TEXT NOT NULL,
	start_s      INTEGER NOT NULL,
	end_s        INTEGER NOT NULL,
	data_points  INTEGER NOT NULL,
	total_orders INTEGER NOT NULL,
	total_fees   TEXT NOT NULL,
	model_checks INTEGER NOT NULL,
	mappings     INTEGER NOT NULL,
	state        TEXT NOT NULL,
	error        TEXT NOT NULL,
	recorded_ns  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS order_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	eid           TEXT NOT NULL,
	order_id      INTEGER NOT NULL,
	symbol        TEXT NOT NULL,
	ts_ns         INTEGER NOT NULL,
	status        TEXT NOT NULL,
	fill_price    TEXT NOT NULL,
	fill_quantity TEXT NOT NULL,
	fee           TEXT NOT NULL,
	fee_currency  TEXT NOT NULL,
	message       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS order_events_eid ON order_events (eid);
CREATE TABLE IF NOT EXISTS symbol_changes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	eid        TEXT NOT NULL,
	ts_ns      INTEGER NOT NULL,
	symbol     TEXT NOT NULL,
	old_symbol TEXT NOT NULL,
	new_symbol TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS symbol_changes_eid ON symbol_changes (eid);
`

// Store is the run ledger. It keeps run reports together with the order events and contract
// mappings recorded while the runs executed.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

type OrderRecord struct {
	ExecutionID  utility.ExecutionID
	OrderId      common.OrderId
	Symbol       string
	TimeStamp    time.Time
	Status       string
	FillPrice    fixed.Point
	FillQuantity fixed.Point
	Fee          common.CashAmount
	Message      string
}

type SymbolChangeRecord struct {
	ExecutionID utility.ExecutionID
	TimeStamp   time.Time
	Symbol      string
	OldSymbol   string
	NewSymbol   string
}

func NewSQLite(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := cfg.Path
	maxOpen := cfg.MaxOpenConns
	if cfg.InMemory {
		// every connection would open its own empty database
		dsn, maxOpen = ":memory:", 1
	} else if err := ensureDir(filepath.Dir(cfg.Path)); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", dsn))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(max(maxOpen, 1))
	if cfg.ConnMaxLifetime > 0 && !cfg.InMemory {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	for _, stmt := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("unable to prepare sqlite database: %w", err)
		}
	}

	s := &Store{db: db, logger: logger.Named(storeComponentName), now: time.Now}
	s.logger.Debug("store opened", zap.String("path", dsn))
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores rep, replacing an earlier report of the same execution.
func (s *Store) SaveRun(ctx context.Context, rep report.Report) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs
	(eid, scenario, start_s, end_s, data_points, total_orders, total_fees, model_checks, mappings, state, error, recorded_ns)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ExecutionID.String(), rep.Scenario, rep.Start.Unix(), rep.End.Unix(),
		rep.DataPoints, rep.TotalOrders, rep.TotalFees.String(), rep.ModelChecks, rep.Mappings,
		rep.State, rep.Error, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("unable to save run %s: %w", rep.ExecutionID, err)
	}
	s.logger.Debug("run saved", rep.Fields()...)
	return nil
}

// Runs returns the latest reports first. A non-positive limit returns all of them.
func (s *Store) Runs(ctx context.Context, limit int) ([]report.Report, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT eid, scenario, start_s, end_s, data_points, total_orders, total_fees, model_checks, mappings, state, error
FROM runs ORDER BY recorded_ns DESC, eid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []report.Report
	for rows.Next() {
		rep, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (s *Store) Run(ctx context.Context, eid utility.ExecutionID) (report.Report, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT eid, scenario, start_s, end_s, data_points, total_orders, total_fees, model_checks, mappings, state, error
FROM runs WHERE eid = ?`, eid.String())
	rep, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Report{}, fmt.Errorf("%s: %w", eid, ErrRunNotFound)
	}
	return rep, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (report.Report, error) {
	var (
		rep        report.Report
		eid        string
		start, end int64
	)
	err := row.Scan(&eid, &rep.Scenario, &start, &end, &rep.DataPoints, &rep.TotalOrders, &rep.TotalFees,
		&rep.ModelChecks, &rep.Mappings, &rep.State, &rep.Error)
	if err != nil {
		return report.Report{}, err
	}
	if rep.ExecutionID, err = utility.ParseExecutionID(eid); err != nil {
		return report.Report{}, err
	}
	rep.Start = time.Unix(start, 0).UTC()
	rep.End = time.Unix(end, 0).UTC()
	return rep, nil
}

func (s *Store) RecordOrderEvent(ctx context.Context, eid utility.ExecutionID, ev common.OrderEvent) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO order_events
	(eid, order_id, symbol, ts_ns, status, fill_price, fill_quantity, fee, fee_currency, message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eid.String(), int64(ev.OrderId), ev.Symbol.String(), ev.TimeStamp.UnixNano(), ev.Status.String(),
		ev.FillPrice.String(), ev.FillQuantity.String(), ev.Fee.Amount.String(), ev.Fee.Currency, ev.Message)
	if err != nil {
		return fmt.Errorf("unable to record order event: %w", err)
	}
	return nil
}

func (s *Store) RecordSymbolChanged(ctx context.Context, eid utility.ExecutionID, ev common.SymbolChangedEvent) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO symbol_changes (eid, ts_ns, symbol, old_symbol, new_symbol) VALUES (?, ?, ?, ?, ?)`,
		eid.String(), ev.TimeStamp.UnixNano(), ev.Symbol.String(), ev.OldSymbol.String(), ev.NewSymbol.String())
	if err != nil {
		return fmt.Errorf("unable to record symbol change: %w", err)
	}
	return nil
}

func (s *Store) OrderEvents(ctx context.Context, eid utility.ExecutionID) ([]OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT order_id, symbol, ts_ns, status, fill_price, fill_quantity, fee, fee_currency, message
FROM order_events WHERE eid = ? ORDER BY id`, eid.String())
	if err != nil {
		return nil, fmt.Errorf("unable to query order events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []OrderRecord
	for rows.Next() {
		var (
			rec     = OrderRecord{ExecutionID: eid}
			orderId int64
			tsNs    int64
		)
		if err := rows.Scan(&orderId, &rec.Symbol, &tsNs, &rec.Status, &rec.FillPrice, &rec.FillQuantity,
			&rec.Fee.Amount, &rec.Fee.Currency, &rec.Message); err != nil {
			return nil, err
		}
		rec.OrderId = common.OrderId(orderId) // #nosec G115
		rec.TimeStamp = time.Unix(0, tsNs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) SymbolChanges(ctx context.Context, eid utility.ExecutionID) ([]SymbolChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ts_ns, symbol, old_symbol, new_symbol FROM symbol_changes WHERE eid = ? ORDER BY id`, eid.String())
	if err != nil {
		return nil, fmt.Errorf("unable to query symbol changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SymbolChangeRecord
	for rows.Next() {
		var (
			rec  = SymbolChangeRecord{ExecutionID: eid}
			tsNs int64
		)
		if err := rows.Scan(&tsNs, &rec.Symbol, &rec.OldSymbol, &rec.NewSymbol); err != nil {
			return nil, err
		}
		rec.TimeStamp = time.Unix(0, tsNs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("unable to create directory %q: %w", path, err)
	}
	return nil
}
