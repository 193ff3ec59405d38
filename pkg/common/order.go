package common

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/utility"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
	"go.uber.org/zap"
)

type OrderId uint64
type OrderType int
type OrderStatus int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeOptionExercise
)

const (
	OrderStatusSubmitted OrderStatus = iota
	OrderStatusFilled
	OrderStatusInvalid
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusSubmitted:
		return "submitted"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

type CashAmount struct {
	Amount   fixed.Point `json:"amount"`
	Currency string      `json:"currency"`
}

func (c CashAmount) String() string {
	return c.Amount.String() + " " + c.Currency
}

type Order struct {
	Id          OrderId             `json:"id"`
	Source      string              `json:"src,omitempty"`
	Symbol      Symbol              `json:"symbol"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
	Type        OrderType           `json:"type"`
	Quantity    fixed.Point         `json:"quantity"`
	Price       fixed.Point         `json:"price,omitempty"`
	Tag         string              `json:"tag,omitempty"`
}

func (o Order) Direction() int {
	return o.Quantity.Sign()
}

func (o Order) Fields() []zap.Field {
	return append(o.Symbol.Fields(),
		zap.Uint64("order_id", uint64(o.Id)),
		zap.String("quantity", o.Quantity.String()),
		zap.String("tag", o.Tag))
}

type OrderEvent struct {
	OrderId      OrderId             `json:"order_id"`
	Source       string              `json:"src,omitempty"`
	Symbol       Symbol              `json:"symbol"`
	ExecutionId  utility.ExecutionID `json:"eid,omitempty"`
	TraceID      utility.TraceID     `json:"tid,omitempty"`
	TimeStamp    time.Time           `json:"ts"`
	Status       OrderStatus         `json:"status"`
	FillPrice    fixed.Point         `json:"fill_price"`
	FillQuantity fixed.Point         `json:"fill_quantity"`
	Fee          CashAmount          `json:"fee"`
	Message      string              `json:"message,omitempty"`
}

func (e OrderEvent) Fields() []zap.Field {
	return append(e.Symbol.Fields(),
		zap.Uint64("order_id", uint64(e.OrderId)),
		zap.Stringer("status", e.Status),
		zap.String("fill_price", e.FillPrice.String()),
		zap.String("fill_quantity", e.FillQuantity.String()),
		zap.String("fee", e.Fee.String()),
		zap.String("message", e.Message))
}
