package schema

import (
	"hash/crc32"

	"github.com/celesta-db/celesta/internal/cerr"
	"github.com/celesta-db/celesta/internal/version"
)

// ElementClass distinguishes what kind of element a GrainElementReference
// points at, since the reference is a plain (grain, name, class) triple
// rather than a live pointer.
type ElementClass int

const (
	ElementTable ElementClass = iota
	ElementView
	ElementSequence
	ElementMaterializedView
)

// GrainElementReference is a non-owning outgoing edge from one grain's
// element to another grain's element, used to compute dependencyOrder
// and to drive the within-grain update ordering.
type GrainElementReference struct {
	GrainName   string
	ElementName string
	Class       ElementClass
}

// Grain is a named schema: a VersionString, source metadata (byte
// length and CRC-32 checksum of its CelestaSQL text), and the
// sequences/tables/views/materialized views it owns.
type Grain struct {
	Name       string
	Version    *version.VersionString
	Length     int
	Checksum   uint32
	Autoupdate bool

	score *Score

	tableOrder []string
	tables     map[string]*Table

	sequences map[string]*Sequence
	views     map[string]*View
	pviews    map[string]*ParameterizedView
	mviews    map[string]*MaterializedView
	indices   map[string]*Index

	dependencyOrder int
	finalized       bool
}

// NewGrain builds an empty grain from its CelestaSQL source text
// (used to compute Length and Checksum) and declared version.
func NewGrain(name string, sourceText string, ver *version.VersionString, autoupdate bool) *Grain {
	return &Grain{
		Name:       name,
		Version:    ver,
		Length:     len(sourceText),
		Checksum:   crc32.ChecksumIEEE([]byte(sourceText)),
		Autoupdate: autoupdate,
		tables:     make(map[string]*Table),
		sequences:  make(map[string]*Sequence),
		views:      make(map[string]*View),
		pviews:     make(map[string]*ParameterizedView),
		mviews:     make(map[string]*MaterializedView),
		indices:    make(map[string]*Index),
	}
}

// Score returns the grain's owning score, or nil before registration.
func (g *Grain) Score() *Score { return g.score }

// AddTable registers t under this grain.
func (g *Grain) AddTable(t *Table) error {
	if g.finalized {
		return cerr.Schema(cerr.CodeIllegalState, "grain %s: cannot add table %s after finalization", g.Name, t.Name)
	}
	if _, exists := g.tables[t.Name]; exists {
		return cerr.Schema(cerr.CodeDuplicateColumn, "grain %s: duplicate table %s", g.Name, t.Name)
	}
	t.grain = g
	g.tables[t.Name] = t
	g.tableOrder = append(g.tableOrder, t.Name)
	return nil
}

// Table looks up a table by name.
func (g *Grain) Table(name string) (*Table, bool) {
	t, ok := g.tables[name]
	return t, ok
}

// Tables returns the grain's tables in declaration order.
func (g *Grain) Tables() []*Table {
	out := make([]*Table, len(g.tableOrder))
	for i, n := range g.tableOrder {
		out[i] = g.tables[n]
	}
	return out
}

// AddSequence registers a sequence under this grain.
func (g *Grain) AddSequence(s *Sequence) error {
	if _, exists := g.sequences[s.Name]; exists {
		return cerr.Schema(cerr.CodeDuplicateColumn, "grain %s: duplicate sequence %s", g.Name, s.Name)
	}
	g.sequences[s.Name] = s
	return nil
}

// Sequences returns all sequences owned by the grain.
func (g *Grain) Sequences() map[string]*Sequence { return g.sequences }

// AddIndex registers an index under this grain.
func (g *Grain) AddIndex(idx *Index) error {
	if _, exists := g.indices[idx.Name]; exists {
		return cerr.Schema(cerr.CodeDuplicateColumn, "grain %s: duplicate index %s", g.Name, idx.Name)
	}
	g.indices[idx.Name] = idx
	return nil
}

// Indices returns all indices owned by the grain.
func (g *Grain) Indices() map[string]*Index { return g.indices }

// AddView registers a view under this grain.
func (g *Grain) AddView(v *View) error {
	if _, exists := g.views[v.Name]; exists {
		return cerr.Schema(cerr.CodeDuplicateColumn, "grain %s: duplicate view %s", g.Name, v.Name)
	}
	g.views[v.Name] = v
	return nil
}

// Views returns all views owned by the grain.
func (g *Grain) Views() map[string]*View { return g.views }

// AddParameterizedView registers a parameterized view under this grain.
func (g *Grain) AddParameterizedView(v *ParameterizedView) error {
	if _, exists := g.pviews[v.Name]; exists {
		return cerr.Schema(cerr.CodeDuplicateColumn, "grain %s: duplicate parameterized view %s", g.Name, v.Name)
	}
	g.pviews[v.Name] = v
	return nil
}

// ParameterizedViews returns all parameterized views owned by the grain.
func (g *Grain) ParameterizedViews() map[string]*ParameterizedView { return g.pviews }

// AddMaterializedView registers a materialized view under this grain.
func (g *Grain) AddMaterializedView(mv *MaterializedView) error {
	if _, exists := g.mviews[mv.Name]; exists {
		return cerr.Schema(cerr.CodeDuplicateColumn, "grain %s: duplicate materialized view %s", g.Name, mv.Name)
	}
	mv.grain = g
	g.mviews[mv.Name] = mv
	return nil
}

// MaterializedViews returns all materialized views owned by the grain.
func (g *Grain) MaterializedViews() map[string]*MaterializedView { return g.mviews }

// References returns every outgoing GrainElementReference from this
// grain's foreign keys, used to compute dependencyOrder.
func (g *Grain) References() []GrainElementReference {
	var refs []GrainElementReference
	for _, t := range g.Tables() {
		for _, fk := range t.ForeignKeys() {
			if fk.ReferencedGrainName() == g.Name {
				continue
			}
			refs = append(refs, GrainElementReference{
				GrainName:   fk.ReferencedGrainName(),
				ElementName: fk.ReferencedTableName(),
				Class:       ElementTable,
			})
		}
	}
	return refs
}

// DependencyOrder is the length of the longest reference path
// starting from this grain in the inter-grain reference DAG,
// computed by Score.finalize via internal/depsort.
func (g *Grain) DependencyOrder() int { return g.dependencyOrder }

// ResolveReferences resolves every table's foreign keys against score.
func (g *Grain) ResolveReferences(score *Score) error {
	for _, t := range g.Tables() {
		if err := t.ResolveReferences(score); err != nil {
			return err
		}
	}
	return nil
}
