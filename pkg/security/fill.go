package security

import (
	"github.com/peter-kozarec/parity/pkg/common"
)

// ImmediateFillModel fills the full quantity at the last price, moved against the order by the
// security's slippage approximation.
type ImmediateFillModel struct{}

func NewImmediateFillModel() *ImmediateFillModel {
	return &ImmediateFillModel{}
}

func (m *ImmediateFillModel) Fill(params FillParameters) Fill {
	ev := common.OrderEvent{
		OrderId:   params.Order.Id,
		Symbol:    params.Order.Symbol,
		TimeStamp: params.Time,
	}

	sec := params.Security
	if sec == nil || !sec.HasData() {
		ev.Status = common.OrderStatusInvalid
		ev.Message = "no market data"
		return NewFill(ev)
	}

	slippage := sec.SlippageModel().SlippageApproximation(sec, params.Order)
	price := sec.Price()
	if params.Order.Direction() < 0 {
		price = price.Sub(slippage)
	} else {
		price = price.Add(slippage)
	}

	ev.Status = common.OrderStatusFilled
	ev.FillPrice = price
	ev.FillQuantity = params.Order.Quantity
	return NewFill(ev)
}
