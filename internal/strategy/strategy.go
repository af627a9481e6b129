// Package strategy defines the Strategy interface for trading strategies,
// provides a Registry for managing multiple strategy implementations and a
// Backtester that runs them against stored bars.
package strategy

import (
	"sort"

	"vantage/internal/engine"
)

// Strategy is the interface that all trading strategies must implement.
// Signal must depend only on the window it is given; strategies in a
// Registry may be shared between concurrent runs.
type Strategy interface {
	engine.Strategy

	// Name returns the unique identifier for this strategy.
	Name() string
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
