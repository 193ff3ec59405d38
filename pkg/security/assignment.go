package security

import (
	"time"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

type NullAssignmentModel struct{}

func (NullAssignmentModel) Assignment(AssignmentParameters) AssignmentProposal {
	return AssignmentProposal{}
}

// DefaultExerciseModel assigns short option positions that are in the money on or after their
// expiry date.
type DefaultExerciseModel struct{}

func NewDefaultExerciseModel() *DefaultExerciseModel {
	return &DefaultExerciseModel{}
}

func (m *DefaultExerciseModel) Assignment(params AssignmentParameters) AssignmentProposal {
	option := params.Option
	if option == nil || !params.Holdings.IsNeg() {
		return AssignmentProposal{}
	}

	symbol := option.Symbol()
	if symbol.Expiry.IsZero() || params.Time.Before(symbol.Expiry) {
		return AssignmentProposal{}
	}

	underlying := option.Underlying()
	if underlying == nil || !underlying.HasData() || !InTheMoney(symbol, underlying.Price()) {
		return AssignmentProposal{}
	}

	return AssignmentProposal{Quantity: params.Holdings.Abs(), Tag: "Automatic Assignment"}
}

func InTheMoney(option common.Symbol, underlyingPrice fixed.Point) bool {
	if option.Right == common.OptionRightPut {
		return option.Strike.Gt(underlyingPrice)
	}
	return underlyingPrice.Gt(option.Strike)
}

type Assignment struct {
	Symbol    common.Symbol
	TimeStamp time.Time
	Proposal  AssignmentProposal
}

// AssignmentSimulation is the algorithm wide market simulation deciding which option positions
// get assigned at a point in time.
type AssignmentSimulation interface {
	Simulate(*Manager, time.Time) []Assignment
}

type SimulationFunc func(*Manager, time.Time) []Assignment

func (f SimulationFunc) Simulate(m *Manager, now time.Time) []Assignment {
	return f(m, now)
}

// OptionAssignmentSimulation asks the assignment model of every held option.
type OptionAssignmentSimulation struct{}

func NewOptionAssignmentSimulation() *OptionAssignmentSimulation {
	return &OptionAssignmentSimulation{}
}

func (s *OptionAssignmentSimulation) Simulate(m *Manager, now time.Time) []Assignment {
	var assignments []Assignment
	for _, sec := range m.All() {
		if !sec.Symbol().Type.IsOption() || !sec.Invested() || sec.AssignmentModel() == nil {
			continue
		}
		proposal := sec.AssignmentModel().Assignment(AssignmentParameters{
			Option:   sec,
			Holdings: sec.Holdings().Quantity,
			Time:     now,
		})
		if proposal.WillAssign() {
			assignments = append(assignments, Assignment{Symbol: sec.Symbol(), TimeStamp: now, Proposal: proposal})
		}
	}
	return assignments
}
