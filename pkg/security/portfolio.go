package security

import (
	"fmt"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

// Portfolio is the cash book of an algorithm. Holdings live on the securities themselves.
type Portfolio struct {
	securities      *Manager
	accountCurrency string
	cash            map[string]fixed.Point
	totalFees       fixed.Point
}

func NewPortfolio(securities *Manager, accountCurrency string) *Portfolio {
	return &Portfolio{
		securities:      securities,
		accountCurrency: accountCurrency,
		cash:            make(map[string]fixed.Point),
	}
}

func (p *Portfolio) AccountCurrency() string {
	return p.accountCurrency
}

func (p *Portfolio) SetCash(amount fixed.Point) {
	p.cash[p.accountCurrency] = amount
}

func (p *Portfolio) Cash(currency string) fixed.Point {
	return p.cash[currency]
}

func (p *Portfolio) CashBook() map[string]fixed.Point {
	out := make(map[string]fixed.Point, len(p.cash))
	for k, v := range p.cash {
		out[k] = v
	}
	return out
}

func (p *Portfolio) TotalFees() fixed.Point {
	return p.totalFees
}

// Contains reports whether the portfolio tracks symbol, which is true for every security the
// algorithm ever added, invested or not.
func (p *Portfolio) Contains(symbol common.Symbol) bool {
	return p.securities.Contains(symbol)
}

func (p *Portfolio) Holding(symbol common.Symbol) Holding {
	if sec, ok := p.securities.Get(symbol); ok {
		return sec.Holdings()
	}
	return Holding{}
}

func (p *Portfolio) Invested() bool {
	for _, sec := range p.securities.All() {
		if sec.Invested() {
			return true
		}
	}
	return false
}

// MarginRemaining is the free cash in the account currency. Positions are not marked to market.
func (p *Portfolio) MarginRemaining() fixed.Point {
	return p.cash[p.accountCurrency]
}

// ApplyFill books a filled order event: it moves the holdings of the security, debits the
// notional in the quote currency and the fee in its own currency.
func (p *Portfolio) ApplyFill(ev common.OrderEvent) error {
	if ev.Status != common.OrderStatusFilled {
		return nil
	}
	sec, err := p.securities.Find(ev.Symbol)
	if err != nil {
		return fmt.Errorf("apply fill: %w", err)
	}

	sec.applyFill(ev.FillQuantity, ev.FillPrice)

	props := sec.Properties()
	notional := ev.FillPrice.Mul(ev.FillQuantity).Mul(props.ContractMultiplier)
	currency := props.QuoteCurrency
	p.cash[currency] = p.cash[currency].Sub(notional)

	if !ev.Fee.Amount.IsZero() {
		p.cash[ev.Fee.Currency] = p.cash[ev.Fee.Currency].Sub(ev.Fee.Amount)
		if ev.Fee.Currency == p.accountCurrency {
			p.totalFees = p.totalFees.Add(ev.Fee.Amount)
		}
	}
	return nil
}

// ApplyAssignment closes the assigned quantity of an option position at zero premium.
func (p *Portfolio) ApplyAssignment(a Assignment) error {
	sec, err := p.securities.Find(a.Symbol)
	if err != nil {
		return fmt.Errorf("apply assignment: %w", err)
	}
	qty := a.Proposal.Quantity
	if sec.Holdings().Quantity.IsNeg() {
		sec.applyFill(qty, fixed.Zero)
	} else {
		sec.applyFill(qty.Neg(), fixed.Zero)
	}
	return nil
}
