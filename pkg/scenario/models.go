package scenario

import (
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/security"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

const (
	customFillMessage    = "Custom Fill Model"
	customAssignmentTag  = "Custom Assignment Model"
	customFeeCurrency    = "ABC"
	customFeeAmount      = 123
	customSentinelAmount = 999
)

type CustomFillModel struct{}

func (CustomFillModel) Fill(params security.FillParameters) security.Fill {
	return security.NewFill(common.OrderEvent{
		OrderId:   params.Order.Id,
		Symbol:    params.Order.Symbol,
		TimeStamp: params.Time,
		Status:    common.OrderStatusInvalid,
		Message:   customFillMessage,
	})
}

type CustomFeeModel struct{}

func (CustomFeeModel) OrderFee(security.FeeParameters) security.OrderFee {
	return security.OrderFee{Value: common.CashAmount{Amount: fixed.FromInt(customFeeAmount, 0), Currency: customFeeCurrency}}
}

type CustomBuyingPowerModel struct{}

func (CustomBuyingPowerModel) Leverage(*security.Security) fixed.Point {
	return fixed.FromInt(customSentinelAmount, 0)
}

func (CustomBuyingPowerModel) SetLeverage(*security.Security, fixed.Point) {}

type CustomSlippageModel struct{}

func (CustomSlippageModel) SlippageApproximation(*security.Security, common.Order) fixed.Point {
	return fixed.FromInt(customSentinelAmount, 0)
}

type CustomVolatilityModel struct{}

func (CustomVolatilityModel) Volatility() fixed.Point {
	return fixed.FromInt(customSentinelAmount, 0)
}

func (CustomVolatilityModel) Update(*security.Security, common.Bar) {}

type CustomAssignmentModel struct{}

func (CustomAssignmentModel) Assignment(security.AssignmentParameters) security.AssignmentProposal {
	return security.AssignmentProposal{Quantity: fixed.FromInt(customSentinelAmount, 0), Tag: customAssignmentTag}
}

// CustomModels is the full set of sentinel models the consistency scenarios install on a root.
func CustomModels() security.Models {
	return security.Models{
		Fill:        CustomFillModel{},
		Fee:         CustomFeeModel{},
		BuyingPower: CustomBuyingPowerModel{},
		Slippage:    CustomSlippageModel{},
		Volatility:  CustomVolatilityModel{},
		Assignment:  CustomAssignmentModel{},
	}
}

// setModels overrides the models one by one, the way a user would on a freshly added root.
func setModels(sec *security.Security) error {
	m := CustomModels()
	for _, set := range []func() error{
		func() error { return sec.SetFillModel(m.Fill) },
		func() error { return sec.SetFeeModel(m.Fee) },
		func() error { return sec.SetBuyingPowerModel(m.BuyingPower) },
		func() error { return sec.SetSlippageModel(m.Slippage) },
		func() error { return sec.SetVolatilityModel(m.Volatility) },
		func() error { return sec.SetAssignmentModel(m.Assignment) },
	} {
		if err := set(); err != nil {
			return err
		}
	}
	return nil
}

// CustomSecurityInitializer is a user initializer built on the brokerage one. Securities it
// initializes must still keep the models their root overrides.
type CustomSecurityInitializer struct {
	*security.BrokerageModelSecurityInitializer
}

func NewCustomSecurityInitializer(brokerage security.BrokerageModel, seeder security.Seeder) *CustomSecurityInitializer {
	return &CustomSecurityInitializer{
		BrokerageModelSecurityInitializer: security.NewBrokerageModelSecurityInitializer(brokerage, seeder),
	}
}
