package security

import (
	"errors"
	"reflect"
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

var (
	ErrNilModel         = errors.New("model must not be nil")
	ErrSecurityNotFound = errors.New("security not found")
)

type FillParameters struct {
	Security *Security
	Order    common.Order
	Time     time.Time
}

// Fill carries the order events produced by a fill model. Most models produce exactly one.
type Fill struct {
	Events []common.OrderEvent
}

func NewFill(events ...common.OrderEvent) Fill {
	return Fill{Events: events}
}

func (f Fill) First() (common.OrderEvent, bool) {
	if len(f.Events) == 0 {
		return common.OrderEvent{}, false
	}
	return f.Events[0], true
}

type FeeParameters struct {
	Security *Security
	Order    common.Order
}

type OrderFee struct {
	Value common.CashAmount
}

type AssignmentParameters struct {
	Option   *Security
	Holdings fixed.Point
	Time     time.Time
}

type AssignmentProposal struct {
	Quantity fixed.Point
	Tag      string
}

func (p AssignmentProposal) WillAssign() bool {
	return !p.Quantity.IsZero()
}

type FillModel interface {
	Fill(FillParameters) Fill
}

type FeeModel interface {
	OrderFee(FeeParameters) OrderFee
}

type BuyingPowerModel interface {
	Leverage(*Security) fixed.Point
	SetLeverage(*Security, fixed.Point)
}

type SlippageModel interface {
	SlippageApproximation(*Security, common.Order) fixed.Point
}

type VolatilityModel interface {
	Volatility() fixed.Point
	Update(*Security, common.Bar)
}

type AssignmentModel interface {
	Assignment(AssignmentParameters) AssignmentProposal
}

// Models is the set of pluggable models a security delegates to.
type Models struct {
	Fill        FillModel
	Fee         FeeModel
	BuyingPower BuyingPowerModel
	Slippage    SlippageModel
	Volatility  VolatilityModel
	Assignment  AssignmentModel
}

func (m Models) Validate() error {
	if IsNilModel(m.Fill) || IsNilModel(m.Fee) || IsNilModel(m.BuyingPower) ||
		IsNilModel(m.Slippage) || IsNilModel(m.Volatility) || IsNilModel(m.Assignment) {
		return ErrNilModel
	}
	return nil
}

// IsNilModel reports whether m is nil, including a nil pointer, map, slice or func stored in an
// interface.
func IsNilModel(m any) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

type modelMask uint8

const (
	maskFill modelMask = 1 << iota
	maskFee
	maskBuyingPower
	maskSlippage
	maskVolatility
	maskAssignment
)
