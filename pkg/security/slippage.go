package security

import (
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

// ConstantSlippageModel approximates slippage as a fixed fraction of the last price.
type ConstantSlippageModel struct {
	fraction fixed.Point
}

func NewConstantSlippageModel(fraction fixed.Point) *ConstantSlippageModel {
	return &ConstantSlippageModel{fraction: fraction}
}

func (m *ConstantSlippageModel) SlippageApproximation(sec *Security, _ common.Order) fixed.Point {
	if sec == nil {
		return fixed.Zero
	}
	return sec.Price().Mul(m.fraction)
}
