// Package depsort computes ordering over grains and grain elements
// for the updater: LongestPathOrder is the longest path in the
// inter-grain reference DAG, and StableTopologicalOrder provides a
// topological order within a single grain, so tables are created after the tables
// they reference and dropped before them. Both use an explicit
// topological sort, grounded on the dependency-graph approach in
// bigmountainben-go-mysql-dummy-populator/internal/analyzer/schema_analyzer.go.
package depsort

import (
	"fmt"

	"github.com/yourbasic/graph"
)

// LongestPathOrder builds a directed graph over names with edges
// given by edges[name] = [names it references], and returns, for
// every name, the length of the longest path starting at that name.
// A cycle anywhere in the graph is reported as an error: cycles across
// grains are rejected rather than ordered.
func LongestPathOrder(names []string, edges map[string][]string) (map[string]int, error) {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	g := graph.New(len(names))
	for from, tos := range edges {
		fi, ok := index[from]
		if !ok {
			continue
		}
		for _, to := range tos {
			ti, ok := index[to]
			if !ok {
				return nil, fmt.Errorf("depsort: edge references unknown node %q", to)
			}
			g.AddCost(fi, ti, 1)
		}
	}

	order, ok := graph.TopSort(g)
	if !ok {
		return nil, fmt.Errorf("depsort: dependency graph contains a cycle")
	}

	// order is a valid topological ordering: every edge u->v has u
	// appearing before v. Process it in reverse so that by the time we
	// compute depth[u], depth[v] is already final for every successor v.
	depth := make([]int, len(names))
	for i := len(order) - 1; i >= 0; i-- {
		u := order[i]
		best := 0
		g.Visit(u, func(v int, _ int64) bool {
			if depth[v]+1 > best {
				best = depth[v] + 1
			}
			return false
		})
		depth[u] = best
	}

	result := make(map[string]int, len(names))
	for i, n := range names {
		result[n] = depth[i]
	}
	return result, nil
}

// Element is anything StableTopologicalOrder can order: a name plus its outgoing
// references, expressed as opaque keys comparable with ==.
type Element interface {
	Key() string
	References() []string
}

// StableTopologicalOrder orders elements so that if a transitively
// references b, a sorts after b — replacing the original
// GrainElementUpdatingComparator's pairwise "does first depend on
// second" reachability walk with a single topological sort over the
// same reference edges. The relative order of elements with no
// dependency relationship is whatever graph.TopSort yields; it does
// not in general follow their input order.
func StableTopologicalOrder(elements []Element) ([]Element, error) {
	index := make(map[string]int, len(elements))
	names := make([]string, len(elements))
	for i, e := range elements {
		index[e.Key()] = i
		names[i] = e.Key()
	}

	g := graph.New(len(elements))
	for i, e := range elements {
		for _, ref := range e.References() {
			if j, ok := index[ref]; ok {
				// e depends on ref: ref must be updated first, so the
				// edge in the sort graph runs ref -> e.
				g.AddCost(j, i, 1)
			}
		}
	}

	order, ok := graph.TopSort(g)
	if !ok {
		return nil, fmt.Errorf("depsort: element dependency graph contains a cycle")
	}

	out := make([]Element, len(order))
	for i, idx := range order {
		out[i] = elements[idx]
	}
	return out, nil
}
