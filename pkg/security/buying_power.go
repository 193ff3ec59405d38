package security

import (
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

// SecurityMarginModel holds the leverage of a single security. Leverage below one is ignored.
type SecurityMarginModel struct {
	leverage fixed.Point
}

func NewSecurityMarginModel(leverage fixed.Point) *SecurityMarginModel {
	if leverage.Lt(fixed.One) {
		leverage = fixed.One
	}
	return &SecurityMarginModel{leverage: leverage}
}

func (m *SecurityMarginModel) Leverage(*Security) fixed.Point {
	return m.leverage
}

func (m *SecurityMarginModel) SetLeverage(_ *Security, leverage fixed.Point) {
	if leverage.Lt(fixed.One) {
		return
	}
	m.leverage = leverage
}
