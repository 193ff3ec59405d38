package scenario

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/peter-kozarec/parity/pkg/algorithm"
	"github.com/peter-kozarec/parity/pkg/check"
	"github.com/peter-kozarec/parity/pkg/report"
)

var ErrUnknownScenario = errors.New("unknown scenario")

const (
	OptionModelsConsistencyName           = "option_models_consistency"
	ContinuousFutureModelsConsistencyName = "continuous_future_models_consistency"
	FutureOptionModelsConsistencyName     = "future_option_models_consistency"
	SetAssignmentModelName                = "set_assignment_model"
	CustomDataName                        = "custom_data"
	ContinuousFutureMappingsName          = "continuous_future_mappings"
	OptionUniverseFilterGreeksName        = "option_universe_filter_greeks"
	FuturesMappedContractsAddedName       = "futures_mapped_contracts_added"
)

// Definition describes a registered scenario. Expected holds the report statistics a successful
// run must produce, keyed like report.Statistics.
type Definition struct {
	Name        string
	Description string
	New         func(...check.Option) algorithm.Algorithm
	Expected    map[string]string
}

func expectEnded(stats map[string]string) map[string]string {
	if stats == nil {
		stats = make(map[string]string)
	}
	stats[report.KeyState] = string(algorithm.StateEnded)
	return stats
}

var registry = []Definition{
	{
		Name:        OptionModelsConsistencyName,
		Description: "contracts of a filtered equity option chain inherit the models set on the root",
		New:         func(opts ...check.Option) algorithm.Algorithm { return NewOptionModelsConsistency(opts...) },
		// 5 strikes around the money, 6 expiries inside 180 days, both rights, plus the equity bar.
		Expected: expectEnded(map[string]string{
			report.KeyModelChecks: "60",
			report.KeyDataPoints:  "61",
		}),
	},
	{
		Name:        ContinuousFutureModelsConsistencyName,
		Description: "contracts mapped by a continuous future inherit the models set on it",
		New:         func(opts ...check.Option) algorithm.Algorithm { return NewContinuousFutureModelsConsistency(opts...) },
		Expected: expectEnded(map[string]string{
			report.KeyMappings:    "2",
			report.KeyModelChecks: "2",
		}),
	},
	{
		Name:        FutureOptionModelsConsistencyName,
		Description: "a future option contract added by hand inherits the models set on its root",
		New:         func(opts ...check.Option) algorithm.Algorithm { return NewFutureOptionModelsConsistency(opts...) },
		Expected: expectEnded(map[string]string{
			report.KeyModelChecks: "1",
		}),
	},
	{
		Name:        SetAssignmentModelName,
		Description: "a custom option assignment simulation replaces the default one",
		New:         func(opts ...check.Option) algorithm.Algorithm { return NewSetAssignmentModel(opts...) },
		Expected: expectEnded(map[string]string{
			report.KeyTotalOrders: "0",
		}),
	},
	{
		Name:        CustomDataName,
		Description: "a seeded custom bitcoin feed is traded once",
		New:         func(opts ...check.Option) algorithm.Algorithm { return NewCustomData(opts...) },
		Expected: expectEnded(map[string]string{
			report.KeyTotalOrders: "1",
		}),
	},
	{
		Name:        ContinuousFutureMappingsName,
		Description: "a first day of month continuous future rolls every quarter",
		New:         func(opts ...check.Option) algorithm.Algorithm { return NewContinuousFutureMappings(opts...) },
		Expected: expectEnded(map[string]string{
			report.KeyMappings: strconv.Itoa(expectedEuroStoxxMappings),
		}),
	},
	{
		Name:        OptionUniverseFilterGreeksName,
		Description: "an option universe filtered on every greek only delivers contracts inside the bounds",
		New:         func(opts ...check.Option) algorithm.Algorithm { return NewOptionUniverseFilterGreeks(opts...) },
		Expected:    expectEnded(nil),
	},
	{
		Name:        FuturesMappedContractsAddedName,
		Description: "both contracts of every roll of a futures basket are known securities",
		New:         func(opts ...check.Option) algorithm.Algorithm { return NewFuturesMappedContractsAdded(opts...) },
		Expected:    expectEnded(nil),
	},
}

func All() []Definition {
	return slices.Clone(registry)
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for _, d := range registry {
		names = append(names, d.Name)
	}
	return names
}

func Lookup(name string) (Definition, error) {
	for _, d := range registry {
		if d.Name == name {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%q: %w", name, ErrUnknownScenario)
}

// Select resolves names in order. No names selects every scenario.
func Select(names ...string) ([]Definition, error) {
	if len(names) == 0 {
		return All(), nil
	}
	out := make([]Definition, 0, len(names))
	for _, name := range names {
		d, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
