package depsort

import "testing"

func TestLongestPathOrder_LinearChain(t *testing.T) {
	// a -> b -> c: a's longest path is 2, b's is 1, c's is 0.
	edges := map[string][]string{
		"a": {"b"},
		"b": {"c"},
	}
	depth, err := LongestPathOrder([]string{"a", "b", "c"}, edges)
	if err != nil {
		t.Fatal(err)
	}
	if depth["a"] != 2 || depth["b"] != 1 || depth["c"] != 0 {
		t.Errorf("depth = %+v, want a=2 b=1 c=0", depth)
	}
}

func TestLongestPathOrder_Diamond(t *testing.T) {
	// a -> b -> d, a -> c -> d: a's longest path is 2.
	edges := map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
		"c": {"d"},
	}
	depth, err := LongestPathOrder([]string{"a", "b", "c", "d"}, edges)
	if err != nil {
		t.Fatal(err)
	}
	if depth["a"] != 2 {
		t.Errorf("depth[a] = %d, want 2", depth["a"])
	}
	if depth["d"] != 0 {
		t.Errorf("depth[d] = %d, want 0", depth["d"])
	}
}

func TestLongestPathOrder_RejectsCycle(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}
	if _, err := LongestPathOrder([]string{"a", "b"}, edges); err == nil {
		t.Error("expected a cycle error")
	}
}

func TestLongestPathOrder_Disconnected(t *testing.T) {
	depth, err := LongestPathOrder([]string{"a", "b"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if depth["a"] != 0 || depth["b"] != 0 {
		t.Errorf("depth = %+v, want both 0", depth)
	}
}

type fakeElement struct {
	key  string
	refs []string
}

func (f fakeElement) Key() string          { return f.key }
func (f fakeElement) References() []string { return f.refs }

func TestStableTopologicalOrder_DependentSortsAfter(t *testing.T) {
	elems := []Element{
		fakeElement{key: "child", refs: []string{"parent"}},
		fakeElement{key: "parent"},
	}
	order, err := StableTopologicalOrder(elems)
	if err != nil {
		t.Fatal(err)
	}
	positions := map[string]int{}
	for i, e := range order {
		positions[e.Key()] = i
	}
	if positions["parent"] >= positions["child"] {
		t.Errorf("expected parent before child, got order %+v", order)
	}
}

func TestStableTopologicalOrder_RejectsCycle(t *testing.T) {
	elems := []Element{
		fakeElement{key: "a", refs: []string{"b"}},
		fakeElement{key: "b", refs: []string{"a"}},
	}
	if _, err := StableTopologicalOrder(elems); err == nil {
		t.Error("expected a cycle error")
	}
}
