package security

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Holding struct {
	Quantity     fixed.Point
	AveragePrice fixed.Point
}

func (h Holding) Invested() bool {
	return !h.Quantity.IsZero()
}

// Security is a tradable instrument together with the models it delegates to.
type Security struct {
	symbol     common.Symbol
	properties SymbolProperties
	underlying *Security

	models     Models
	overridden modelMask

	lastBar  common.Bar
	price    fixed.Point
	hasData  bool
	holdings Holding

	// Continuous futures track the contract currently standing behind them.
	mapped common.Symbol
}

func New(symbol common.Symbol, properties SymbolProperties) *Security {
	return &Security{
		symbol:     symbol,
		properties: properties,
	}
}

func (s *Security) Symbol() common.Symbol {
	return s.symbol
}

func (s *Security) Properties() SymbolProperties {
	return s.properties
}

func (s *Security) Underlying() *Security {
	return s.underlying
}

func (s *Security) SetUnderlying(underlying *Security) {
	s.underlying = underlying
}

func (s *Security) Models() Models {
	return s.models
}

func (s *Security) FillModel() FillModel {
	return s.models.Fill
}

func (s *Security) FeeModel() FeeModel {
	return s.models.Fee
}

func (s *Security) BuyingPowerModel() BuyingPowerModel {
	return s.models.BuyingPower
}

func (s *Security) SlippageModel() SlippageModel {
	return s.models.Slippage
}

func (s *Security) VolatilityModel() VolatilityModel {
	return s.models.Volatility
}

func (s *Security) AssignmentModel() AssignmentModel {
	return s.models.Assignment
}

func (s *Security) SetFillModel(m FillModel) error {
	if IsNilModel(m) {
		return ErrNilModel
	}
	s.models.Fill = m
	s.overridden |= maskFill
	return nil
}

func (s *Security) SetFeeModel(m FeeModel) error {
	if IsNilModel(m) {
		return ErrNilModel
	}
	s.models.Fee = m
	s.overridden |= maskFee
	return nil
}

func (s *Security) SetBuyingPowerModel(m BuyingPowerModel) error {
	if IsNilModel(m) {
		return ErrNilModel
	}
	s.models.BuyingPower = m
	s.overridden |= maskBuyingPower
	return nil
}

func (s *Security) SetSlippageModel(m SlippageModel) error {
	if IsNilModel(m) {
		return ErrNilModel
	}
	s.models.Slippage = m
	s.overridden |= maskSlippage
	return nil
}

func (s *Security) SetVolatilityModel(m VolatilityModel) error {
	if IsNilModel(m) {
		return ErrNilModel
	}
	s.models.Volatility = m
	s.overridden |= maskVolatility
	return nil
}

func (s *Security) SetAssignmentModel(m AssignmentModel) error {
	if IsNilModel(m) {
		return ErrNilModel
	}
	s.models.Assignment = m
	s.overridden |= maskAssignment
	return nil
}

// SetModels overrides all six models at once. Nothing is applied unless every model is set.
func (s *Security) SetModels(m Models) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.models = m
	s.overridden = maskFill | maskFee | maskBuyingPower | maskSlippage | maskVolatility | maskAssignment
	return nil
}

func (s *Security) Leverage() fixed.Point {
	if s.models.BuyingPower == nil {
		return fixed.One
	}
	return s.models.BuyingPower.Leverage(s)
}

func (s *Security) SetLeverage(leverage fixed.Point) {
	if s.models.BuyingPower != nil {
		s.models.BuyingPower.SetLeverage(s, leverage)
	}
}

// applyDefaults fills every model that was not explicitly overridden.
func (s *Security) applyDefaults(defaults Models) {
	if s.overridden&maskFill == 0 && defaults.Fill != nil {
		s.models.Fill = defaults.Fill
	}
	if s.overridden&maskFee == 0 && defaults.Fee != nil {
		s.models.Fee = defaults.Fee
	}
	if s.overridden&maskBuyingPower == 0 && defaults.BuyingPower != nil {
		s.models.BuyingPower = defaults.BuyingPower
	}
	if s.overridden&maskSlippage == 0 && defaults.Slippage != nil {
		s.models.Slippage = defaults.Slippage
	}
	if s.overridden&maskVolatility == 0 && defaults.Volatility != nil {
		s.models.Volatility = defaults.Volatility
	}
	if s.overridden&maskAssignment == 0 && defaults.Assignment != nil {
		s.models.Assignment = defaults.Assignment
	}
}

// inherit copies the overridden models of root. Models root took from its initializer are not
// copied, the derived security receives its own defaults instead.
func (s *Security) inherit(root *Security) {
	m := root.models
	if root.overridden&maskFill != 0 {
		s.models.Fill = m.Fill
	}
	if root.overridden&maskFee != 0 {
		s.models.Fee = m.Fee
	}
	if root.overridden&maskBuyingPower != 0 {
		s.models.BuyingPower = m.BuyingPower
	}
	if root.overridden&maskSlippage != 0 {
		s.models.Slippage = m.Slippage
	}
	if root.overridden&maskVolatility != 0 {
		s.models.Volatility = m.Volatility
	}
	if root.overridden&maskAssignment != 0 {
		s.models.Assignment = m.Assignment
	}
	s.overridden |= root.overridden
}

func (s *Security) Price() fixed.Point {
	return s.price
}

func (s *Security) HasData() bool {
	return s.hasData
}

func (s *Security) LastBar() common.Bar {
	return s.lastBar
}

func (s *Security) LocalTime() time.Time {
	return s.lastBar.TimeStamp
}

// Update sets the market price from bar and feeds the volatility model.
func (s *Security) Update(bar common.Bar) {
	s.SetMarketPrice(bar)
	if s.models.Volatility != nil {
		s.models.Volatility.Update(s, bar)
	}
}

func (s *Security) SetMarketPrice(bar common.Bar) {
	s.lastBar = bar
	s.price = bar.Close
	s.hasData = true
}

func (s *Security) Holdings() Holding {
	return s.holdings
}

func (s *Security) Invested() bool {
	return s.holdings.Invested()
}

func (s *Security) applyFill(quantity, price fixed.Point) {
	total := s.holdings.Quantity.Add(quantity)
	switch {
	case total.IsZero():
		s.holdings = Holding{}
		return
	case s.holdings.Quantity.IsZero() || s.holdings.Quantity.Sign() != total.Sign():
		s.holdings.AveragePrice = price
	case s.holdings.Quantity.Sign() == quantity.Sign():
		cost := s.holdings.AveragePrice.Mul(s.holdings.Quantity).Add(price.Mul(quantity))
		s.holdings.AveragePrice = cost.Div(total)
	}
	s.holdings.Quantity = total
}

func (s *Security) Mapped() common.Symbol {
	return s.mapped
}

func (s *Security) SetMapped(symbol common.Symbol) {
	s.mapped = symbol
}

func (s *Security) Fields() []zap.Field {
	return append(s.symbol.Fields(),
		zap.Bool("has_data", s.hasData),
		zap.String("price", s.price.String()),
		zap.String("holdings", s.holdings.Quantity.String()))
}
