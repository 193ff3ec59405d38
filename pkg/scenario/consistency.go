package scenario

import (
	"github.com/peter-kozarec/parity/pkg/algorithm"
	"github.com/peter-kozarec/parity/pkg/check"
	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/walker"
)

// modelsConsistency checks every security its walker yields against the custom models. The
// run fails when nothing was checked by the end.
type modelsConsistency struct {
	algorithm.Base
	checker *check.Checker
	walker  walker.Walker
	subject string
}

func newModelsConsistency(subject string, expectations check.Expectations, opts []check.Option) modelsConsistency {
	return modelsConsistency{
		checker: check.NewChecker(expectations, opts...),
		subject: subject,
	}
}

func (a *modelsConsistency) OnData(_ *algorithm.Host, slice common.Slice) error {
	if a.walker == nil {
		return nil
	}
	for sec, err := range a.walker.Walk(slice) {
		if err != nil {
			return err
		}
		if err := a.checker.Check(sec); err != nil {
			return err
		}
	}
	return nil
}

func (a *modelsConsistency) OnEndOfAlgorithm(h *algorithm.Host) error {
	h.Log("models consistency done", subjectField(a.subject), checksField(a.checker.Count()))
	return algorithm.Assert(a.checker.Checked(), "no %s was checked", a.subject)
}

func (a *modelsConsistency) ModelChecks() int {
	return a.checker.Count()
}
