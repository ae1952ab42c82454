package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a strategy from its stored parameters.
type Constructor func(data MarketData, p Params) (Strategy, error)

type entry struct {
	build  Constructor
	schema []ParamSpec
}

// Descriptor is the public listing of one registered strategy.
type Descriptor struct {
	Name        string      `json:"name"`
	ParamSchema []ParamSpec `json:"param_schema"`
}

// Registry maps strategy names to constructors.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]entry{}}
}

// DefaultRegistry returns a registry with the four built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NameVolatilityBreakout, NewVolatilityBreakout, VolatilityBreakoutSchema())
	r.Register(NameMACrossover, NewMACrossover, MACrossoverSchema())
	r.Register(NameRSI, NewRSI, RSISchema())
	r.Register(NameBollinger, NewBollinger, BollingerSchema())
	return r
}

// Register adds or replaces a strategy.
func (r *Registry) Register(name string, build Constructor, schema []ParamSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{build: build, schema: schema}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Build constructs the named strategy.
func (r *Registry) Build(name string, data MarketData, p Params) (Strategy, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
	if p == nil {
		p = Params{}
	}
	s, err := e.build(data, p)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", name, err)
	}
	return s, nil
}

// List returns every registered strategy with its schema, sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, Descriptor{Name: name, ParamSchema: e.schema})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
