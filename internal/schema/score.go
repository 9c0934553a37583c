package schema

import (
	"github.com/celesta-db/celesta/internal/cerr"
	"github.com/celesta-db/celesta/internal/depsort"
)

// Score is the process-wide collection of grains, keyed by unique
// grain name, plus a designated system grain whose tables hold
// upgrade state.
type Score struct {
	grainOrder     []string
	grains         map[string]*Grain
	systemGrainName string
}

// NewScore builds an empty score.
func NewScore() *Score {
	return &Score{grains: make(map[string]*Grain)}
}

// AddGrain registers g under the score.
func (s *Score) AddGrain(g *Grain) error {
	if _, exists := s.grains[g.Name]; exists {
		return cerr.Schema(cerr.CodeDuplicateColumn, "score: duplicate grain %s", g.Name)
	}
	g.score = s
	s.grains[g.Name] = g
	s.grainOrder = append(s.grainOrder, g.Name)
	return nil
}

// Grain looks up a grain by name.
func (s *Score) Grain(name string) (*Grain, bool) {
	g, ok := s.grains[name]
	return g, ok
}

// Grains returns all grains, in registration order.
func (s *Score) Grains() []*Grain {
	out := make([]*Grain, len(s.grainOrder))
	for i, n := range s.grainOrder {
		out[i] = s.grains[n]
	}
	return out
}

// SetSystemGrain designates name as the system grain. name must
// already be registered.
func (s *Score) SetSystemGrain(name string) error {
	if _, ok := s.grains[name]; !ok {
		return cerr.Schema(cerr.CodeUnknownColumn, "score: system grain %s not found", name)
	}
	s.systemGrainName = name
	return nil
}

// SystemGrain returns the designated system grain, or nil if none was set.
func (s *Score) SystemGrain() *Grain {
	if s.systemGrainName == "" {
		return nil
	}
	g := s.grains[s.systemGrainName]
	return g
}

// Finalize resolves every grain's foreign keys and computes each
// grain's dependencyOrder from the inter-grain reference DAG. Cycles
// across grains are rejected here with CYCLIC_GRAIN_DEPENDENCY.
func (s *Score) Finalize() error {
	for _, g := range s.Grains() {
		if err := g.ResolveReferences(s); err != nil {
			return err
		}
	}

	edges := make(map[string][]string, len(s.grains))
	for _, g := range s.Grains() {
		seen := make(map[string]bool)
		for _, ref := range g.References() {
			if !seen[ref.GrainName] {
				seen[ref.GrainName] = true
				edges[g.Name] = append(edges[g.Name], ref.GrainName)
			}
		}
	}

	order, err := depsort.LongestPathOrder(s.grainOrder, edges)
	if err != nil {
		return cerr.Schema(cerr.CodeCyclicGrainDependency, "score: cyclic grain dependency: %v", err)
	}
	for name, depth := range order {
		s.grains[name].dependencyOrder = depth
		s.grains[name].finalized = true
	}
	return nil
}
