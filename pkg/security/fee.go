package security

import (
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

type ConstantFeeModel struct {
	fee      fixed.Point
	currency string
}

func NewConstantFeeModel(fee fixed.Point, currency string) *ConstantFeeModel {
	return &ConstantFeeModel{fee: fee, currency: currency}
}

func (m *ConstantFeeModel) OrderFee(FeeParameters) OrderFee {
	return OrderFee{Value: common.CashAmount{Amount: m.fee, Currency: m.currency}}
}
