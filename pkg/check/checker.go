package check

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/security"
)

const checkerComponentName = "check.checker"

type Option func(*Checker)

// WithFailAll makes Check evaluate every model and report all mismatches at once.
func WithFailAll() Option {
	return func(c *Checker) {
		c.failAll = true
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Checker) {
		c.logger = logger.Named(checkerComponentName)
	}
}

// Checker asserts that a security delegates to the expected models. It is not safe for
// concurrent use, checks run on the event delivery goroutine.
type Checker struct {
	logger       *zap.Logger
	expectations Expectations
	failAll      bool

	checked bool
	count   int
	perKind map[Kind]int
}

func NewChecker(expectations Expectations, opts ...Option) *Checker {
	c := &Checker{
		logger:       zap.NewNop(),
		expectations: expectations,
		perKind:      make(map[Kind]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check invokes each model of sec once. On the first full success the checked flag is set and
// it never resets.
func (c *Checker) Check(sec *security.Security) error {
	var errs error
	for _, kind := range kinds {
		if kind == KindAssignment && c.expectations.SkipAssignment {
			continue
		}
		if err := c.checkKind(sec, kind); err != nil {
			if !c.failAll {
				return err
			}
			errs = multierr.Append(errs, err)
			continue
		}
		c.perKind[kind]++
	}
	if errs != nil {
		return errs
	}

	c.checked = true
	c.count++
	c.logger.Debug("models checked", sec.Symbol().Fields()...)
	return nil
}

func (c *Checker) checkKind(sec *security.Security, kind Kind) error {
	e := c.expectations
	symbol := sec.Symbol()

	switch kind {
	case KindFill:
		if sec.FillModel() == nil {
			return mismatch(symbol, kind, e.FillMessage, "nil")
		}
		ev, ok := sec.FillModel().Fill(security.FillParameters{Security: sec, Order: probeOrder(symbol)}).First()
		if !ok || ev.Message != e.FillMessage {
			return mismatch(symbol, kind, e.FillMessage, ev.Message)
		}
	case KindFee:
		if sec.FeeModel() == nil {
			return mismatch(symbol, kind, e.Fee.String(), "nil")
		}
		fee := sec.FeeModel().OrderFee(security.FeeParameters{Security: sec, Order: probeOrder(symbol)}).Value
		if !fee.Amount.Eq(e.Fee.Amount) || fee.Currency != e.Fee.Currency {
			return mismatch(symbol, kind, e.Fee.String(), fee.String())
		}
	case KindBuyingPower:
		if sec.BuyingPowerModel() == nil {
			return mismatch(symbol, kind, e.Leverage.String(), "nil")
		}
		if got := sec.BuyingPowerModel().Leverage(sec); !got.Eq(e.Leverage) {
			return mismatch(symbol, kind, e.Leverage.String(), got.String())
		}
	case KindSlippage:
		if sec.SlippageModel() == nil {
			return mismatch(symbol, kind, e.Slippage.String(), "nil")
		}
		if got := sec.SlippageModel().SlippageApproximation(sec, probeOrder(symbol)); !got.Eq(e.Slippage) {
			return mismatch(symbol, kind, e.Slippage.String(), got.String())
		}
	case KindVolatility:
		if sec.VolatilityModel() == nil {
			return mismatch(symbol, kind, e.Volatility.String(), "nil")
		}
		if got := sec.VolatilityModel().Volatility(); !got.Eq(e.Volatility) {
			return mismatch(symbol, kind, e.Volatility.String(), got.String())
		}
	case KindAssignment:
		if sec.AssignmentModel() == nil {
			return mismatch(symbol, kind, e.AssignmentTag, "nil")
		}
		p := sec.AssignmentModel().Assignment(security.AssignmentParameters{Option: sec})
		if !p.Quantity.Eq(e.AssignmentQty) || p.Tag != e.AssignmentTag {
			return mismatch(symbol, kind, e.AssignmentQty.String()+" "+e.AssignmentTag, p.Quantity.String()+" "+p.Tag)
		}
	}
	return nil
}

func probeOrder(symbol common.Symbol) common.Order {
	return common.Order{Symbol: symbol}
}

func mismatch(symbol common.Symbol, kind Kind, expected, actual string) error {
	return &MismatchError{Symbol: symbol, Kind: kind, Expected: expected, Actual: actual}
}

func (c *Checker) Checked() bool {
	return c.checked
}

// Count is the number of securities that passed every check.
func (c *Checker) Count() int {
	return c.count
}

func (c *Checker) CountOf(kind Kind) int {
	return c.perKind[kind]
}
