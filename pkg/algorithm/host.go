package algorithm

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/mapping"
	"github.com/peter-kozarec/parity/pkg/security"
	"github.com/peter-kozarec/parity/pkg/universe"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

const (
	defaultResolution = 24 * time.Hour
	accountCurrency   = "USD"
)

type subscriptionConfig struct {
	resolution    time.Duration
	leverage      fixed.Point
	market        string
	mappingMode   mapping.MappingMode
	normalization mapping.NormalizationMode
	depth         int
	filter        universe.FilterFunc
}

type SubscriptionOption func(*subscriptionConfig)

func WithResolution(resolution time.Duration) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.resolution = resolution
	}
}

func WithLeverage(leverage fixed.Point) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.leverage = leverage
	}
}

func WithMarket(market string) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.market = market
	}
}

func WithMapping(mode mapping.MappingMode) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.mappingMode = mode
	}
}

func WithNormalization(mode mapping.NormalizationMode) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.normalization = mode
	}
}

func WithContractDepth(depth int) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.depth = depth
	}
}

func WithFilter(filter universe.FilterFunc) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.filter = filter
	}
}

func newSubscriptionConfig(market string, opts []SubscriptionOption) subscriptionConfig {
	c := subscriptionConfig{resolution: defaultResolution, market: market}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// continuousFuture keeps the mapping state of one canonical future.
type continuousFuture struct {
	security *security.Security
	mapper   *mapping.Mapper
	adjuster *mapping.Adjuster
}

// Host is the API an algorithm sees. It is only touched from the engine's dispatch goroutine.
type Host struct {
	ctx    context.Context
	name   string
	logger *zap.Logger

	start  time.Time
	end    time.Time
	now    time.Time
	locked bool

	brokerage   security.BrokerageModel
	initializer security.SecurityInitializer
	securities  *security.Manager
	portfolio   *security.Portfolio
	assignment  security.AssignmentSimulation

	history datasource.HistoryProvider
	chains  datasource.ChainProvider

	subscriptions []datasource.Subscription
	subscribed    map[string]int
	filters       map[string]universe.FilterFunc
	futures       []*continuousFuture

	orders      []common.Order
	nextOrderId common.OrderId
	orderCount  int64
	changes     common.SecurityChanges
}

func newHost(name string, logger *zap.Logger, provider datasource.Provider) *Host {
	h := &Host{
		ctx:        context.Background(),
		name:       name,
		logger:     logger.Named(name),
		brokerage:  security.NewDefaultBrokerageModel(),
		assignment: security.NewOptionAssignmentSimulation(),
		history:    provider,
		chains:     provider,
		subscribed: make(map[string]int),
		filters:    make(map[string]universe.FilterFunc),
	}
	h.securities = security.NewManager(logger, security.NewSymbolPropertiesStore(), security.FuncSecurityInitializer(h.initializeSecurity))
	h.portfolio = security.NewPortfolio(h.securities, accountCurrency)
	return h
}

// initializeSecurity installs the brokerage defaults before the user initializer runs, so a
// user initializer that only seeds prices still leaves a complete model set.
func (h *Host) initializeSecurity(sec *security.Security) error {
	if err := security.NewBrokerageModelSecurityInitializer(h.brokerage, nil).Initialize(sec); err != nil {
		return err
	}
	if h.initializer == nil {
		return nil
	}
	return h.initializer.Initialize(sec)
}

func (h *Host) Name() string {
	return h.name
}

func (h *Host) Logger() *zap.Logger {
	return h.logger
}

func (h *Host) Log(msg string, fields ...zap.Field) {
	h.logger.Info(msg, append(fields, zap.Time("time", h.Time()))...)
}

func (h *Host) Debug(msg string, fields ...zap.Field) {
	h.logger.Debug(msg, append(fields, zap.Time("time", h.Time()))...)
}

// Time is the current algorithm time. Before the first frame it is the start date.
func (h *Host) Time() time.Time {
	if h.now.IsZero() {
		return h.start
	}
	return h.now
}

func (h *Host) StartDate() time.Time {
	return h.start
}

func (h *Host) EndDate() time.Time {
	return h.end
}

func (h *Host) SetStartDate(year int, month time.Month, day int) {
	if h.locked {
		h.logger.Warn("start date can only be set during initialize")
		return
	}
	h.start = time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (h *Host) SetEndDate(year int, month time.Month, day int) {
	if h.locked {
		h.logger.Warn("end date can only be set during initialize")
		return
	}
	h.end = time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (h *Host) SetCash(amount fixed.Point) {
	h.portfolio.SetCash(amount)
}

func (h *Host) Securities() *security.Manager {
	return h.securities
}

func (h *Host) Portfolio() *security.Portfolio {
	return h.portfolio
}

func (h *Host) BrokerageModel() security.BrokerageModel {
	return h.brokerage
}

func (h *Host) SetBrokerageModel(brokerage security.BrokerageModel) error {
	if security.IsNilModel(brokerage) {
		return fmt.Errorf("set brokerage model: %w", security.ErrNilModel)
	}
	h.brokerage = brokerage
	return nil
}

// SetSecurityInitializer applies to securities added after the call.
func (h *Host) SetSecurityInitializer(initializer security.SecurityInitializer) error {
	if security.IsNilModel(initializer) {
		return fmt.Errorf("set security initializer: %w", security.ErrNilModel)
	}
	h.initializer = initializer
	return nil
}

// SetAssignmentModel replaces the market simulation deciding option assignments. A nil
// simulation is rejected and the current one stays in place.
func (h *Host) SetAssignmentModel(simulation security.AssignmentSimulation) error {
	if security.IsNilModel(simulation) {
		return fmt.Errorf("set assignment model: %w", security.ErrNilModel)
	}
	h.assignment = simulation
	return nil
}

func (h *Host) OptionChainProvider() datasource.ChainProvider {
	return h.chains
}

// LastKnownPrices asks the history provider for the latest data of sec before the current time.
func (h *Host) LastKnownPrices(sec *security.Security) []common.Bar {
	if h.history == nil {
		return nil
	}
	return h.history.LastKnown(h.ctx, h.subscriptionOf(sec.Symbol()), h.Time())
}

func (h *Host) subscriptionOf(symbol common.Symbol) datasource.Subscription {
	if idx, ok := h.subscribed[symbol.ID()]; ok {
		return h.subscriptions[idx]
	}
	return datasource.Subscription{Symbol: symbol, Resolution: defaultResolution}
}

func (h *Host) IsSubscribed(symbol common.Symbol) bool {
	_, ok := h.subscribed[symbol.ID()]
	return ok
}

func (h *Host) Subscriptions() []datasource.Subscription {
	return slices.Clone(h.subscriptions)
}

func (h *Host) AddEquity(ticker string, opts ...SubscriptionOption) (*security.Security, error) {
	cfg := newSubscriptionConfig(common.MarketUSA, opts)
	return h.add(common.NewEquity(ticker, cfg.market), nil, cfg, nil)
}

// AddOption adds the canonical option of underlying, adding the underlying first when needed.
func (h *Host) AddOption(underlying common.Symbol, opts ...SubscriptionOption) (*security.Security, error) {
	cfg := newSubscriptionConfig(underlying.Market, opts)
	if !h.securities.Contains(underlying) {
		if _, err := h.add(underlying, nil, cfg, nil); err != nil {
			return nil, err
		}
	}
	return h.add(common.NewOption(underlying), nil, cfg, nil)
}

func (h *Host) AddOptionContract(symbol common.Symbol, opts ...SubscriptionOption) (*security.Security, error) {
	return h.addContract(symbol, newSubscriptionConfig(symbol.Market, opts))
}

// AddFuture adds a continuous future that maps onto its listed contracts as frames arrive.
func (h *Host) AddFuture(ticker string, opts ...SubscriptionOption) (*security.Security, error) {
	cfg := newSubscriptionConfig(common.MarketCME, opts)
	symbol := common.NewFuture(ticker, cfg.market)
	sec, err := h.add(symbol, nil, cfg, nil)
	if err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(h.futures, func(f *continuousFuture) bool { return f.security == sec }) {
		h.futures = append(h.futures, &continuousFuture{
			security: sec,
			mapper:   mapping.NewMapper(symbol, cfg.mappingMode, cfg.depth),
			adjuster: mapping.NewAdjuster(cfg.normalization),
		})
	}
	return sec, nil
}

func (h *Host) AddFutureContract(symbol common.Symbol, opts ...SubscriptionOption) (*security.Security, error) {
	return h.addContract(symbol, newSubscriptionConfig(symbol.Market, opts))
}

// AddFutureOption adds the canonical option written on a future contract.
func (h *Host) AddFutureOption(future common.Symbol, opts ...SubscriptionOption) (*security.Security, error) {
	cfg := newSubscriptionConfig(future.Market, opts)
	if !h.securities.Contains(future) {
		if _, err := h.addContract(future, cfg); err != nil {
			return nil, err
		}
	}
	return h.add(common.NewFutureOption(future), nil, cfg, nil)
}

func (h *Host) AddFutureOptionContract(symbol common.Symbol, opts ...SubscriptionOption) (*security.Security, error) {
	return h.addContract(symbol, newSubscriptionConfig(symbol.Market, opts))
}

// AddData subscribes to a custom data type under ticker.
func (h *Host) AddData(ticker string, custom datasource.CustomType, opts ...SubscriptionOption) (*security.Security, error) {
	if custom == nil {
		return nil, fmt.Errorf("add data %s: custom type must not be nil", ticker)
	}
	cfg := newSubscriptionConfig(common.MarketCustom, opts)
	return h.add(common.NewCustom(ticker), nil, cfg, custom)
}

// SetFilter replaces the universe filter of a canonical option.
func (h *Host) SetFilter(canonical common.Symbol, filter universe.FilterFunc) error {
	canonical = canonical.Canonical()
	if !canonical.Type.IsOption() || !h.securities.Contains(canonical) {
		return fmt.Errorf("set filter %s: %w", canonical, security.ErrSecurityNotFound)
	}
	h.filters[canonical.ID()] = filter
	return nil
}

// addContract links a single contract to its canonical root when the root is known, so it
// inherits the models overridden there.
func (h *Host) addContract(symbol common.Symbol, cfg subscriptionConfig) (*security.Security, error) {
	root, _ := h.securities.Get(symbol.Canonical())
	return h.add(symbol, root, cfg, nil)
}

func (h *Host) add(symbol common.Symbol, root *security.Security, cfg subscriptionConfig, custom datasource.CustomType) (*security.Security, error) {
	if _, ok := h.subscribed[symbol.ID()]; !ok {
		h.subscribed[symbol.ID()] = len(h.subscriptions)
		h.subscriptions = append(h.subscriptions, datasource.Subscription{
			Symbol:     symbol,
			Resolution: cfg.resolution,
			Custom:     custom,
		})
	}

	var (
		sec   *security.Security
		added bool
		err   error
	)
	if root != nil {
		sec, added, err = h.securities.AddDerived(root, symbol)
	} else {
		sec, added, err = h.securities.Add(symbol)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.leverage.IsZero() {
		sec.SetLeverage(cfg.leverage)
	}
	if cfg.filter != nil && symbol.Type.IsOption() && symbol.IsCanonical() {
		h.filters[symbol.ID()] = cfg.filter
	}
	if added {
		h.changes.Added = append(h.changes.Added, symbol)
	}
	return sec, nil
}

// addDerived registers a contract discovered from data under root.
func (h *Host) addDerived(root *security.Security, symbol common.Symbol) (*security.Security, error) {
	sec, added, err := h.securities.AddDerived(root, symbol)
	if err != nil {
		return nil, err
	}
	if added {
		h.changes.Added = append(h.changes.Added, symbol)
	}
	return sec, nil
}

// Order submits a market order. It is filled before the next frame is read.
func (h *Host) Order(symbol common.Symbol, quantity fixed.Point, tag ...string) (common.OrderId, error) {
	if !h.securities.Contains(symbol) {
		return 0, fmt.Errorf("order %s: %w", symbol, security.ErrSecurityNotFound)
	}
	if quantity.IsZero() {
		return 0, fmt.Errorf("order %s: quantity must not be zero", symbol)
	}

	h.nextOrderId++
	order := common.Order{
		Id:        h.nextOrderId,
		Source:    h.name,
		Symbol:    symbol,
		TimeStamp: h.Time(),
		Type:      common.OrderTypeMarket,
		Quantity:  quantity,
	}
	if len(tag) > 0 {
		order.Tag = tag[0]
	}

	h.orders = append(h.orders, order)
	h.orderCount++
	h.logger.Debug("order submitted", order.Fields()...)
	return order.Id, nil
}

func (h *Host) takeOrders() []common.Order {
	orders := h.orders
	h.orders = nil
	return orders
}

func (h *Host) takeChanges(ts time.Time) (common.SecurityChanges, bool) {
	if h.changes.IsEmpty() {
		return common.SecurityChanges{}, false
	}
	changes := h.changes
	changes.TimeStamp = ts
	h.changes = common.SecurityChanges{}
	return changes, true
}
