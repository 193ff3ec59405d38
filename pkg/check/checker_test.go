package check

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/security"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

type fillModel struct{ message string }

func (m fillModel) Fill(p security.FillParameters) security.Fill {
	return security.NewFill(common.OrderEvent{Symbol: p.Order.Symbol, Message: m.message})
}

type leverageModel struct{ value fixed.Point }

func (m leverageModel) Leverage(*security.Security) fixed.Point     { return m.value }
func (m leverageModel) SetLeverage(*security.Security, fixed.Point) {}

type slippageModel struct{ value fixed.Point }

func (m slippageModel) SlippageApproximation(*security.Security, common.Order) fixed.Point {
	return m.value
}

type volatilityModel struct{ value fixed.Point }

func (m volatilityModel) Volatility() fixed.Point               { return m.value }
func (m volatilityModel) Update(*security.Security, common.Bar) {}

type assignmentModel struct{}

func (assignmentModel) Assignment(security.AssignmentParameters) security.AssignmentProposal {
	return security.AssignmentProposal{Quantity: fixed.FromInt(999, 0), Tag: "Custom Assignment Model"}
}

func customModels() security.Models {
	n := fixed.FromInt(999, 0)
	return security.Models{
		Fill:        fillModel{message: "Custom Fill Model"},
		Fee:         security.NewConstantFeeModel(fixed.FromInt(123, 0), "ABC"),
		BuyingPower: leverageModel{value: n},
		Slippage:    slippageModel{value: n},
		Volatility:  volatilityModel{value: n},
		Assignment:  assignmentModel{},
	}
}

func newSecurity(t *testing.T, models security.Models) *security.Security {
	t.Helper()
	sec := security.New(common.NewEquity("GOOG", common.MarketUSA), security.SymbolProperties{})
	require.NoError(t, sec.SetModels(models))
	return sec
}

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*security.Models)
		wantKind Kind
		wantErr  bool
	}{
		{name: "all custom"},
		{"wrong fill message", func(m *security.Models) { m.Fill = fillModel{message: "other"} }, KindFill, true},
		{"wrong fee currency", func(m *security.Models) { m.Fee = security.NewConstantFeeModel(fixed.FromInt(123, 0), "USD") }, KindFee, true},
		{"default leverage", func(m *security.Models) { m.BuyingPower = security.NewSecurityMarginModel(fixed.Two) }, KindBuyingPower, true},
		{"default slippage", func(m *security.Models) { m.Slippage = security.NewConstantSlippageModel(fixed.Zero) }, KindSlippage, true},
		{"null volatility", func(m *security.Models) { m.Volatility = security.NullVolatilityModel{} }, KindVolatility, true},
		{"null assignment", func(m *security.Models) { m.Assignment = security.NullAssignmentModel{} }, KindAssignment, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := customModels()
			if tt.mutate != nil {
				tt.mutate(&models)
			}
			c := NewChecker(DefaultExpectations(), WithLogger(zaptest.NewLogger(t)))
			err := c.Check(newSecurity(t, models))

			if !tt.wantErr {
				require.NoError(t, err)
				assert.True(t, c.Checked())
				assert.Equal(t, 1, c.Count())
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrModelMismatch))
			var mismatch *MismatchError
			require.True(t, errors.As(err, &mismatch))
			assert.Equal(t, tt.wantKind, mismatch.Kind)
			assert.False(t, c.Checked())
		})
	}
}

func TestChecker_FailFastStopsAtFirstMismatch(t *testing.T) {
	models := customModels()
	models.Fill = fillModel{}
	models.Fee = security.NewConstantFeeModel(fixed.One, "USD")

	c := NewChecker(DefaultExpectations())
	err := c.Check(newSecurity(t, models))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.Equal(t, 0, c.CountOf(KindBuyingPower))
}

func TestChecker_FailAllReportsEveryMismatch(t *testing.T) {
	models := customModels()
	models.Fill = fillModel{}
	models.Fee = security.NewConstantFeeModel(fixed.One, "USD")

	c := NewChecker(DefaultExpectations(), WithFailAll())
	err := c.Check(newSecurity(t, models))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, 1, c.CountOf(KindBuyingPower))
	assert.False(t, c.Checked())
}

func TestChecker_CheckedNeverResets(t *testing.T) {
	c := NewChecker(DefaultExpectations())
	require.NoError(t, c.Check(newSecurity(t, customModels())))

	models := customModels()
	models.Volatility = security.NullVolatilityModel{}
	require.Error(t, c.Check(newSecurity(t, models)))

	assert.True(t, c.Checked())
	assert.Equal(t, 1, c.Count())
}

func TestChecker_WithoutAssignment(t *testing.T) {
	models := customModels()
	models.Assignment = security.NullAssignmentModel{}

	c := NewChecker(DefaultExpectations().WithoutAssignment())
	require.NoError(t, c.Check(newSecurity(t, models)))
	assert.Equal(t, 0, c.CountOf(KindAssignment))
}
