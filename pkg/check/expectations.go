package check

import (
	"errors"
	"fmt"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

var ErrModelMismatch = errors.New("model mismatch")

type Kind int

const (
	KindFill Kind = iota
	KindFee
	KindBuyingPower
	KindSlippage
	KindVolatility
	KindAssignment
)

var kinds = []Kind{KindFill, KindFee, KindBuyingPower, KindSlippage, KindVolatility, KindAssignment}

func (k Kind) String() string {
	switch k {
	case KindFill:
		return "fill"
	case KindFee:
		return "fee"
	case KindBuyingPower:
		return "buying_power"
	case KindSlippage:
		return "slippage"
	case KindVolatility:
		return "volatility"
	case KindAssignment:
		return "assignment"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Expectations are the observable values the custom models are known to produce.
type Expectations struct {
	FillMessage    string
	Fee            common.CashAmount
	Leverage       fixed.Point
	Slippage       fixed.Point
	Volatility     fixed.Point
	AssignmentQty  fixed.Point
	AssignmentTag  string
	SkipAssignment bool
}

func DefaultExpectations() Expectations {
	return Expectations{
		FillMessage:   "Custom Fill Model",
		Fee:           common.CashAmount{Amount: fixed.FromInt(123, 0), Currency: "ABC"},
		Leverage:      fixed.FromInt(999, 0),
		Slippage:      fixed.FromInt(999, 0),
		Volatility:    fixed.FromInt(999, 0),
		AssignmentQty: fixed.FromInt(999, 0),
		AssignmentTag: "Custom Assignment Model",
	}
}

// WithoutAssignment drops the assignment check for scenarios that only install the other five.
func (e Expectations) WithoutAssignment() Expectations {
	e.SkipAssignment = true
	return e
}

type MismatchError struct {
	Symbol   common.Symbol
	Kind     Kind
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("contract %s %s model is not the custom one: expected %s, got %s", e.Symbol, e.Kind, e.Expected, e.Actual)
}

func (e *MismatchError) Unwrap() error {
	return ErrModelMismatch
}
