package security

import (
	"fmt"

	"github.com/peter-kozarec/parity/pkg/common"
	"go.uber.org/zap"
)

const managerComponentName = "security.manager"

// Manager owns every security of an algorithm. Derived contracts are linked to their underlying
// and inherit the models overridden on their canonical root.
type Manager struct {
	logger      *zap.Logger
	properties  *SymbolPropertiesStore
	initializer SecurityInitializer

	securities map[string]*Security
	order      []string
}

func NewManager(logger *zap.Logger, properties *SymbolPropertiesStore, initializer SecurityInitializer) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if properties == nil {
		properties = NewSymbolPropertiesStore()
	}
	return &Manager{
		logger:      logger.Named(managerComponentName),
		properties:  properties,
		initializer: initializer,
		securities:  make(map[string]*Security),
	}
}

func (m *Manager) SetInitializer(initializer SecurityInitializer) {
	m.initializer = initializer
}

func (m *Manager) Initializer() SecurityInitializer {
	return m.initializer
}

// Add returns the security for symbol, creating and initializing it on first use.
func (m *Manager) Add(symbol common.Symbol) (*Security, bool, error) {
	return m.add(symbol, nil)
}

// AddDerived creates a contract of root. The contract receives the models overridden on root
// before the initializer runs, so the initializer only fills what root left at defaults.
// An existing security is returned untouched.
func (m *Manager) AddDerived(root *Security, symbol common.Symbol) (*Security, bool, error) {
	if root == nil {
		return nil, false, fmt.Errorf("add derived %s: %w", symbol, ErrSecurityNotFound)
	}
	return m.add(symbol, root)
}

func (m *Manager) add(symbol common.Symbol, root *Security) (*Security, bool, error) {
	id := symbol.ID()
	if sec, ok := m.securities[id]; ok {
		return sec, false, nil
	}

	sec := New(symbol, m.properties.Get(symbol))
	if symbol.Underlying != nil {
		if underlying, ok := m.securities[symbol.Underlying.ID()]; ok {
			sec.SetUnderlying(underlying)
		}
	}
	if root != nil {
		sec.inherit(root)
	}

	if m.initializer != nil {
		if err := m.initializer.Initialize(sec); err != nil {
			return nil, false, fmt.Errorf("initialize %s: %w", symbol, err)
		}
	}

	m.securities[id] = sec
	m.order = append(m.order, id)

	m.logger.Debug("security added", sec.Fields()...)
	return sec, true, nil
}

func (m *Manager) Get(symbol common.Symbol) (*Security, bool) {
	sec, ok := m.securities[symbol.ID()]
	return sec, ok
}

func (m *Manager) Find(symbol common.Symbol) (*Security, error) {
	sec, ok := m.securities[symbol.ID()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSecurityNotFound)
	}
	return sec, nil
}

func (m *Manager) MustGet(symbol common.Symbol) *Security {
	sec, err := m.Find(symbol)
	if err != nil {
		panic(err)
	}
	return sec
}

func (m *Manager) Contains(symbol common.Symbol) bool {
	_, ok := m.securities[symbol.ID()]
	return ok
}

func (m *Manager) Len() int {
	return len(m.securities)
}

// All returns the securities in the order they were added.
func (m *Manager) All() []*Security {
	out := make([]*Security, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.securities[id])
	}
	return out
}

func (m *Manager) Roots() []*Security {
	var out []*Security
	for _, id := range m.order {
		if sec := m.securities[id]; sec.Symbol().IsCanonical() {
			out = append(out, sec)
		}
	}
	return out
}
