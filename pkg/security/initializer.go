package security

import (
	"github.com/peter-kozarec/parity/pkg/common"
)

type SecurityInitializer interface {
	Initialize(*Security) error
}

type FuncSecurityInitializer func(*Security) error

func (f FuncSecurityInitializer) Initialize(sec *Security) error {
	return f(sec)
}

// BrokerageModelSecurityInitializer installs the brokerage defaults for every model the
// security does not override and seeds its price.
type BrokerageModelSecurityInitializer struct {
	brokerage BrokerageModel
	seeder    Seeder
}

func NewBrokerageModelSecurityInitializer(brokerage BrokerageModel, seeder Seeder) *BrokerageModelSecurityInitializer {
	if seeder == nil {
		seeder = NullSeeder{}
	}
	return &BrokerageModelSecurityInitializer{brokerage: brokerage, seeder: seeder}
}

func (i *BrokerageModelSecurityInitializer) Initialize(sec *Security) error {
	sec.applyDefaults(i.brokerage.DefaultModels(sec))
	i.seeder.Seed(sec)
	return sec.models.Validate()
}

func (i *BrokerageModelSecurityInitializer) BrokerageModel() BrokerageModel {
	return i.brokerage
}

type Seeder interface {
	Seed(*Security) bool
}

type NullSeeder struct{}

func (NullSeeder) Seed(*Security) bool {
	return false
}

// FuncSeeder seeds a security with the last of the bars returned by its function.
type FuncSeeder func(*Security) []common.Bar

func (f FuncSeeder) Seed(sec *Security) bool {
	bars := f(sec)
	if len(bars) == 0 {
		return false
	}
	sec.SetMarketPrice(bars[len(bars)-1])
	return true
}
