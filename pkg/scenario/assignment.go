package scenario

import (
	"errors"
	"time"

	"github.com/peter-kozarec/parity/pkg/algorithm"
	"github.com/peter-kozarec/parity/pkg/check"
	"github.com/peter-kozarec/parity/pkg/security"
	"github.com/peter-kozarec/parity/pkg/universe"
)

// CountingAssignmentSimulation delegates to the option assignment simulation and counts how
// often the engine consulted it.
type CountingAssignmentSimulation struct {
	inner security.AssignmentSimulation
	calls int
}

func NewCountingAssignmentSimulation() *CountingAssignmentSimulation {
	return &CountingAssignmentSimulation{inner: security.NewOptionAssignmentSimulation()}
}

func (s *CountingAssignmentSimulation) Simulate(m *security.Manager, now time.Time) []security.Assignment {
	s.calls++
	return s.inner.Simulate(m, now)
}

func (s *CountingAssignmentSimulation) Calls() int {
	return s.calls
}

// SetAssignmentModel replaces the assignment simulation. A nil simulation must be rejected and
// the installed one must be used by the engine.
type SetAssignmentModel struct {
	algorithm.Base
	simulation *CountingAssignmentSimulation
}

func NewSetAssignmentModel(...check.Option) *SetAssignmentModel {
	return &SetAssignmentModel{simulation: NewCountingAssignmentSimulation()}
}

func (a *SetAssignmentModel) Initialize(h *algorithm.Host) error {
	h.SetStartDate(2015, time.December, 24)
	h.SetEndDate(2015, time.December, 28)

	equity, err := h.AddEquity("SPY", algorithm.WithResolution(time.Hour))
	if err != nil {
		return err
	}
	if _, err := h.AddOption(equity.Symbol(), algorithm.WithResolution(time.Hour), algorithm.WithFilter(func(f *universe.OptionFilter) *universe.OptionFilter {
		return f.Strikes(-2, 2).Expiration(0, 30)
	})); err != nil {
		return err
	}

	err = h.SetAssignmentModel(nil)
	if err := algorithm.Assert(errors.Is(err, security.ErrNilModel), "nil assignment model was accepted: %v", err); err != nil {
		return err
	}
	return h.SetAssignmentModel(a.simulation)
}

func (a *SetAssignmentModel) OnEndOfAlgorithm(h *algorithm.Host) error {
	h.Log("assignment simulation done", callsField(a.simulation.Calls()))
	return algorithm.Assert(a.simulation.Calls() > 0, "custom assignment simulation was never used")
}
