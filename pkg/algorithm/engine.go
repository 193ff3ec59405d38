package algorithm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/bus"
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/middleware"
	"github.com/peter-kozarec/parity/pkg/report"
	"github.com/peter-kozarec/parity/pkg/security"
	"github.com/peter-kozarec/parity/pkg/universe"
	"github.com/peter-kozarec/parity/pkg/utility"
)

const (
	engineComponentName   = "algorithm.engine"
	defaultRouterCapacity = 1024
)

// ModelCheckCounter is implemented by algorithms that count the securities they verified.
type ModelCheckCounter interface {
	ModelChecks() int
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithRouterCapacity(capacity int) Option {
	return func(e *Engine) {
		e.routerCapacity = capacity
	}
}

func WithMonitorFlags(flags middleware.MonitorFlags) Option {
	return func(e *Engine) {
		e.monitorFlags = flags
	}
}

// WithRecorder writes order events and contract mappings of the run through recorder.
func WithRecorder(recorder middleware.Recorder) Option {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

func WithExecutionID(eid utility.ExecutionID) Option {
	return func(e *Engine) {
		e.eid = eid
	}
}

// Engine drives one algorithm over the frames of a provider. Frames are turned into events on
// the router goroutine and delivered to the algorithm on that same goroutine.
type Engine struct {
	name           string
	logger         *zap.Logger
	eid            utility.ExecutionID
	routerCapacity int
	monitorFlags   middleware.MonitorFlags
	recorder       middleware.Recorder

	algorithm Algorithm
	provider  datasource.Provider
	host      *Host
	state     *StateMachine
	router    *bus.Router
	telemetry *middleware.Telemetry

	endPosted  bool
	dataPoints int64
	mappings   int
}

func NewEngine(name string, algorithm Algorithm, provider datasource.Provider, options ...Option) *Engine {
	e := &Engine{
		name:           name,
		logger:         zap.NewNop(),
		eid:            utility.NewExecutionID(),
		routerCapacity: defaultRouterCapacity,
		monitorFlags:   middleware.MonitorNone,
		algorithm:      algorithm,
		provider:       provider,
		state:          NewStateMachine(),
	}
	for _, option := range options {
		option(e)
	}
	e.host = newHost(name, e.logger, provider)
	e.logger = e.logger.Named(engineComponentName)
	return e
}

func (e *Engine) Host() *Host {
	return e.host
}

func (e *Engine) State() State {
	return e.state.Current()
}

func (e *Engine) ExecutionID() utility.ExecutionID {
	return e.eid
}

// Run initializes the algorithm and feeds it every frame of the requested range. Any callback
// error is fatal: the engine fails and the error is returned next to the partial report.
func (e *Engine) Run(ctx context.Context) (report.Report, error) {
	e.host.ctx = ctx

	err := e.run(ctx)
	if err != nil {
		e.state.Fail()
		e.logger.Error("run failed", zap.String("eid", e.eid.String()), zap.Error(err))
	} else {
		e.logger.Info("run finished", zap.String("eid", e.eid.String()), zap.Int64("data_points", e.dataPoints))
	}

	rep := e.report()
	if err != nil {
		rep.Error = err.Error()
	}
	return rep, err
}

func (e *Engine) run(ctx context.Context) error {
	if err := e.algorithm.Initialize(e.host); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := e.state.Transition(StateInitialized); err != nil {
		return err
	}
	h := e.host
	h.locked = true

	if h.start.IsZero() || h.end.IsZero() {
		return errors.New("start and end date must be set during initialize")
	}
	if h.end.Before(h.start) {
		return fmt.Errorf("end date %s is before start date %s", h.end.Format("2006-01-02"), h.start.Format("2006-01-02"))
	}

	feed, err := e.provider.Open(ctx, datasource.Request{
		Start:         h.start,
		End:           h.end,
		Subscriptions: h.Subscriptions(),
	})
	if err != nil {
		return fmt.Errorf("open feed: %w", err)
	}
	if closer, ok := feed.(io.Closer); ok {
		defer func() {
			_ = closer.Close()
		}()
	}

	e.router = bus.NewRouter(e.logger, e.routerCapacity)
	e.telemetry = middleware.NewTelemetry(e.logger)
	e.wire()

	if err := e.state.Transition(StateRunning); err != nil {
		return err
	}

	dispatch := datasource.CreateFrameDispatcher(feed, e.onFrame)
	err = <-e.router.ExecLoop(ctx, func(ctx context.Context) error {
		if err := e.processOrders(); err != nil {
			return err
		}
		if e.endPosted {
			return datasource.ErrEOF
		}
		if err := dispatch(ctx); err != nil {
			if !errors.Is(err, datasource.ErrEOF) {
				return err
			}
			e.endPosted = true
			return e.router.Post(bus.EndEvent, bus.EndOfAlgorithm{ExecutionId: e.eid, TimeStamp: h.Time()})
		}
		return nil
	})

	e.logger.Debug("router statistics", e.router.Statistics().Fields()...)
	e.telemetry.PrintStatistics()

	if errors.Is(err, datasource.ErrEOF) && e.state.Current() == StateEnded {
		return nil
	}
	if err == nil {
		return errors.New("event loop stopped before the end of the algorithm")
	}
	return err
}

func (e *Engine) wire() {
	monitor := middleware.NewMonitor(e.logger, e.monitorFlags)

	var ledger *middleware.Ledger
	if e.recorder != nil {
		ledger = middleware.NewLedger(e.recorder, e.eid)
	}

	sliceChain := []func(bus.SliceEventHandler) bus.SliceEventHandler{monitor.WithSlice, e.telemetry.WithSlice}
	orderChain := []func(bus.OrderEventHandler) bus.OrderEventHandler{monitor.WithOrder, e.telemetry.WithOrder}
	if ledger != nil {
		sliceChain = append(sliceChain, ledger.WithSlice)
		orderChain = append(orderChain, ledger.WithOrder)
	}

	e.router.OnSlice = middleware.Chain(sliceChain...)(e.onSlice)
	e.router.OnSecuritiesChanged = middleware.Chain(monitor.WithSecuritiesChanged, e.telemetry.WithSecuritiesChanged)(e.onSecuritiesChanged)
	onOrder := bus.OrderEventHandler(middleware.NoopOrderHdl)
	if handler, ok := e.algorithm.(OrderEventHandler); ok {
		onOrder = func(_ context.Context, ev common.OrderEvent) error {
			if err := handler.OnOrderEvent(e.host, ev); err != nil {
				return fmt.Errorf("on order event: %w", err)
			}
			return nil
		}
	}
	e.router.OnOrder = middleware.Chain(orderChain...)(onOrder)
	e.router.OnAssignment = middleware.Chain(monitor.WithAssignment, e.telemetry.WithAssignment)(e.onAssignment)
	e.router.OnEnd = middleware.Chain(monitor.WithEnd, e.telemetry.WithEnd)(e.onEnd)
}

func (e *Engine) onSlice(_ context.Context, slice common.Slice) error {
	if err := e.algorithm.OnData(e.host, slice); err != nil {
		return fmt.Errorf("on data %s: %w", slice.TimeStamp.Format("2006-01-02 15:04"), err)
	}
	return nil
}

func (e *Engine) onSecuritiesChanged(_ context.Context, changes common.SecurityChanges) error {
	if err := e.algorithm.OnSecuritiesChanged(e.host, changes); err != nil {
		return fmt.Errorf("on securities changed: %w", err)
	}
	return nil
}

func (e *Engine) onAssignment(_ context.Context, a security.Assignment) error {
	handler, ok := e.algorithm.(AssignmentHandler)
	if !ok {
		return nil
	}
	if err := handler.OnAssignment(e.host, a); err != nil {
		return fmt.Errorf("on assignment: %w", err)
	}
	return nil
}

func (e *Engine) onEnd(_ context.Context, _ bus.EndOfAlgorithm) error {
	if err := e.algorithm.OnEndOfAlgorithm(e.host); err != nil {
		return fmt.Errorf("end of algorithm: %w", err)
	}
	return e.state.Transition(StateEnded)
}

// processOrders fills the orders submitted since the last call through the models of their
// securities and books the fills.
func (e *Engine) processOrders() error {
	h := e.host
	for _, order := range h.takeOrders() {
		sec, err := h.securities.Find(order.Symbol)
		if err != nil {
			return err
		}

		ev, ok := sec.FillModel().Fill(security.FillParameters{Security: sec, Order: order, Time: h.Time()}).First()
		if !ok {
			continue
		}
		if ev.Status == common.OrderStatusFilled {
			ev.Fee = sec.FeeModel().OrderFee(security.FeeParameters{Security: sec, Order: order}).Value
			if err := h.portfolio.ApplyFill(ev); err != nil {
				return err
			}
		}

		ev.Source = engineComponentName
		ev.ExecutionId = e.eid
		ev.TraceID = utility.CreateTraceID()
		if err := e.router.Post(bus.OrderEvent, ev); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) onFrame(_ context.Context, frame common.Frame) error {
	h := e.host
	ts := frame.TimeStamp
	h.now = ts

	slice := common.NewSlice(ts)
	slice.ExecutionId = e.eid
	slice.TraceID = utility.CreateTraceID()

	if err := e.mapFutures(frame, &slice); err != nil {
		return err
	}

	for _, bar := range frame.Bars {
		if sec, ok := h.securities.Get(bar.Symbol); ok {
			sec.Update(bar)
		}
		if h.IsSubscribed(bar.Symbol) {
			slice.Bars[bar.Symbol.ID()] = bar
		}
	}

	for _, record := range frame.Custom {
		if sec, ok := h.securities.Get(record.Symbol); ok {
			sec.Update(record.Bar())
		}
		slice.Custom[record.Symbol.ID()] = record
	}

	if err := e.buildChains(frame, &slice); err != nil {
		return err
	}

	if changes, ok := h.takeChanges(ts); ok {
		if err := e.router.Post(bus.SecuritiesChangedEvent, changes); err != nil {
			return err
		}
	}

	for _, a := range h.assignment.Simulate(h.securities, ts) {
		if err := h.portfolio.ApplyAssignment(a); err != nil {
			return err
		}
		if err := e.router.Post(bus.AssignmentEvent, a); err != nil {
			return err
		}
	}

	if !slice.HasData() && len(slice.SymbolChangedEvents) == 0 {
		return nil
	}
	e.dataPoints += int64(len(slice.Bars) + len(slice.Custom))
	for _, chain := range slice.OptionChains {
		e.dataPoints += int64(chain.Len())
	}
	return e.router.Post(bus.SliceEvent, slice)
}

// mapFutures runs the mapper of every continuous future on the contract bars of the frame and
// delivers the mapped contract's bar under the continuous symbol.
func (e *Engine) mapFutures(frame common.Frame, slice *common.Slice) error {
	h := e.host
	for _, cf := range h.futures {
		ev, changed := cf.mapper.Update(frame.TimeStamp, frame.Bars)
		mapped, ok := cf.mapper.Mapped()
		if !ok {
			continue
		}
		if _, err := h.addDerived(cf.security, mapped); err != nil {
			return err
		}
		cf.security.SetMapped(mapped)

		continuous := cf.security.Symbol()
		if changed {
			ev.Source = engineComponentName
			ev.ExecutionId = e.eid
			ev.TraceID = slice.TraceID
			slice.SymbolChangedEvents[continuous.ID()] = ev
			cf.adjuster.Roll(frame.TimeStamp, e.barOf(frame, ev.OldSymbol).Close, e.barOf(frame, ev.NewSymbol).Close)
			e.mappings++
			h.logger.Debug("contract mapped", ev.Fields()...)
		}

		bar, ok := findBar(frame.Bars, mapped)
		if !ok {
			continue
		}
		bar = cf.adjuster.Adjust(bar)
		bar.Symbol = continuous
		cf.security.Update(bar)
		if h.IsSubscribed(continuous) {
			slice.Bars[continuous.ID()] = bar
		}
	}
	return nil
}

// barOf prefers the bar in the frame and falls back to the last price of the security.
func (e *Engine) barOf(frame common.Frame, symbol common.Symbol) common.Bar {
	if bar, ok := findBar(frame.Bars, symbol); ok {
		return bar
	}
	if sec, ok := e.host.securities.Get(symbol); ok {
		return sec.LastBar()
	}
	return common.Bar{Symbol: symbol}
}

func findBar(bars []common.Bar, symbol common.Symbol) (common.Bar, bool) {
	id := symbol.ID()
	for _, bar := range bars {
		if bar.Symbol.ID() == id {
			return bar, true
		}
	}
	return common.Bar{}, false
}

// buildChains groups the quotes of the frame by canonical symbol, runs the universe filter of
// each subscribed chain and adds the selected contracts under their canonical root.
func (e *Engine) buildChains(frame common.Frame, slice *common.Slice) error {
	h := e.host

	grouped := make(map[string][]common.OptionContract)
	canonicals := make(map[string]common.Symbol)
	for _, quote := range frame.Quotes {
		if sec, ok := h.securities.Get(quote.Symbol); ok {
			sec.SetMarketPrice(quoteBar(quote))
		}
		canonical := quote.Symbol.Canonical()
		id := canonical.ID()
		grouped[id] = append(grouped[id], quote)
		canonicals[id] = canonical
	}

	for _, id := range slices.Sorted(maps.Keys(grouped)) {
		canonical := canonicals[id]
		if !h.IsSubscribed(canonical) {
			continue
		}
		root, ok := h.securities.Get(canonical)
		if !ok {
			continue
		}

		quotes := grouped[id]
		chain := common.OptionChain{Canonical: canonical, TimeStamp: frame.TimeStamp}
		underlyingPrice := quotes[0].UnderlyingPrice
		if underlying := root.Underlying(); underlying != nil && underlying.HasData() {
			chain.Underlying = underlying.LastBar()
			underlyingPrice = underlying.Price()
		}

		filter := universe.NewOptionFilter()
		if fn, ok := h.filters[id]; ok && fn != nil {
			filter = fn(filter)
		}
		chain.Contracts = filter.Apply(underlyingPrice, frame.TimeStamp, quotes)

		for _, contract := range chain.Contracts {
			sec, err := h.addDerived(root, contract.Symbol)
			if err != nil {
				return err
			}
			sec.SetMarketPrice(quoteBar(contract))
		}
		if chain.Len() > 0 {
			slice.OptionChains[id] = chain
		}
	}
	return nil
}

func quoteBar(c common.OptionContract) common.Bar {
	price := c.Mid()
	return common.Bar{
		Symbol:    c.Symbol,
		TimeStamp: c.TimeStamp,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    c.Volume,
	}
}

func (e *Engine) report() report.Report {
	h := e.host
	rep := report.Report{
		ExecutionID: e.eid,
		Scenario:    e.name,
		Start:       h.start,
		End:         h.end,
		DataPoints:  e.dataPoints,
		TotalOrders: h.orderCount,
		TotalFees:   h.portfolio.TotalFees(),
		Mappings:    e.mappings,
		State:       string(e.state.Current()),
	}
	if counter, ok := e.algorithm.(ModelCheckCounter); ok {
		rep.ModelChecks = counter.ModelChecks()
	}
	return rep
}
