package security

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

type BrokerageModel interface {
	Name() string
	AccountCurrency() string
	Leverage(*Security) fixed.Point
	DefaultModels(*Security) Models
}

type DefaultBrokerageModel struct {
	volatilityPeriods int
}

func NewDefaultBrokerageModel() *DefaultBrokerageModel {
	return &DefaultBrokerageModel{volatilityPeriods: 30}
}

func (b *DefaultBrokerageModel) Name() string {
	return "default"
}

func (b *DefaultBrokerageModel) AccountCurrency() string {
	return "USD"
}

func (b *DefaultBrokerageModel) Leverage(sec *Security) fixed.Point {
	if sec.Symbol().Type == common.SecurityTypeEquity {
		return fixed.Two
	}
	return fixed.One
}

// DefaultModels returns fresh instances on every call. Stateful models are never shared between
// securities that did not ask for it.
func (b *DefaultBrokerageModel) DefaultModels(sec *Security) Models {
	var volatility VolatilityModel = NullVolatilityModel{}
	if sec.Symbol().Type == common.SecurityTypeEquity || sec.Symbol().Type == common.SecurityTypeFuture {
		volatility = NewStandardDeviationOfReturnsVolatilityModel(b.volatilityPeriods, 24*time.Hour)
	}

	var assignment AssignmentModel = NullAssignmentModel{}
	if sec.Symbol().Type.IsOption() {
		assignment = NewDefaultExerciseModel()
	}

	return Models{
		Fill:        NewImmediateFillModel(),
		Fee:         NewConstantFeeModel(fixed.One, b.AccountCurrency()),
		BuyingPower: NewSecurityMarginModel(b.Leverage(sec)),
		Slippage:    NewConstantSlippageModel(fixed.Zero),
		Volatility:  volatility,
		Assignment:  assignment,
	}
}
