package walker

import (
	"fmt"
	"iter"

	"github.com/peter-kozarec/parity/pkg/common"
	"github.com/peter-kozarec/parity/pkg/security"
)

// Walker lists the derived securities reachable from a root in one slice. The sequence is lazy,
// finite and can be ranged over again for the next slice. A derived symbol the manager does not
// hold is yielded as an error wrapping security.ErrSecurityNotFound.
type Walker interface {
	Walk(common.Slice) iter.Seq2[*security.Security, error]
}

type Func func(common.Slice) iter.Seq2[*security.Security, error]

func (f Func) Walk(s common.Slice) iter.Seq2[*security.Security, error] {
	return f(s)
}

func resolve(m *security.Manager, symbol common.Symbol, root common.Symbol) (*security.Security, error) {
	sec, err := m.Find(symbol)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return sec, nil
}

// ChainWalker yields every contract of the option chain of its canonical symbol. A missing or
// empty chain yields nothing.
type ChainWalker struct {
	canonical  common.Symbol
	securities *security.Manager
}

func NewChainWalker(canonical common.Symbol, securities *security.Manager) *ChainWalker {
	return &ChainWalker{canonical: canonical.Canonical(), securities: securities}
}

func (w *ChainWalker) Walk(s common.Slice) iter.Seq2[*security.Security, error] {
	return func(yield func(*security.Security, error) bool) {
		chain, ok := s.OptionChain(w.canonical)
		if !ok {
			return
		}
		for _, contract := range chain.Contracts {
			if !yield(resolve(w.securities, contract.Symbol, w.canonical)) {
				return
			}
		}
	}
}

// MappingWalker reacts only to symbol changed events of its continuous future and yields the
// newly mapped contract.
type MappingWalker struct {
	continuous common.Symbol
	securities *security.Manager
	mapped     int
}

func NewMappingWalker(continuous common.Symbol, securities *security.Manager) *MappingWalker {
	return &MappingWalker{continuous: continuous.Canonical(), securities: securities}
}

func (w *MappingWalker) Walk(s common.Slice) iter.Seq2[*security.Security, error] {
	ev, ok := s.SymbolChanged(w.continuous)
	if ok {
		w.mapped++
	}
	return func(yield func(*security.Security, error) bool) {
		if !ok {
			return
		}
		yield(resolve(w.securities, ev.NewSymbol, w.continuous))
	}
}

// Mapped counts the slices walked that carried a symbol changed event.
func (w *MappingWalker) Mapped() int {
	return w.mapped
}
