package algorithm

import (
	"errors"
	"fmt"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/security"
)

// ErrAssertion marks a failed regression assertion raised by an algorithm callback.
var ErrAssertion = errors.New("assertion failed")

// Algorithm is driven by the Engine. Any error returned from a callback ends the run.
type Algorithm interface {
	Initialize(*Host) error
	OnData(*Host, common.Slice) error
	OnSecuritiesChanged(*Host, common.SecurityChanges) error
	OnEndOfAlgorithm(*Host) error
}

type OrderEventHandler interface {
	OnOrderEvent(*Host, common.OrderEvent) error
}

type AssignmentHandler interface {
	OnAssignment(*Host, security.Assignment) error
}

// Base provides no-op callbacks to embed.
type Base struct{}

func (Base) Initialize(*Host) error                                  { return nil }
func (Base) OnData(*Host, common.Slice) error                        { return nil }
func (Base) OnSecuritiesChanged(*Host, common.SecurityChanges) error { return nil }
func (Base) OnEndOfAlgorithm(*Host) error                            { return nil }

func Assert(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrAssertion, fmt.Sprintf(format, args...))
}
