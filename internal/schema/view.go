package schema

import "github.com/celesta-db/celesta/internal/expr"

// View is a named query: a declared output column list over a parsed
// expression tree (its WHERE-equivalent predicate or projection root).
type View struct {
	Name    string
	grain   *Grain
	Columns []string
	Root    *expr.Node
}

func (v *View) GrainName() string { return v.grain.Name }
func (v *View) ViewName() string  { return v.Name }

// NewView builds a view and binds root's owning-view back-reference.
func NewView(name string, columns []string, root *expr.Node) *View {
	v := &View{Name: name, Columns: append([]string(nil), columns...), Root: root}
	expr.Bind(root, v)
	return v
}

// ParameterizedView is a View that additionally accepts named
// parameters, substituted into its expression tree at query time by
// the row-cursor generator (opaque to the core model).
type ParameterizedView struct {
	View
	Parameters []string
}

// NewParameterizedView builds a parameterized view.
func NewParameterizedView(name string, columns, parameters []string, root *expr.Node) *ParameterizedView {
	pv := &ParameterizedView{
		View:       View{Name: name, Columns: append([]string(nil), columns...), Root: root},
		Parameters: append([]string(nil), parameters...),
	}
	expr.Bind(root, pv)
	return pv
}

// MaterializedViewChecksumPrefix marks the CRC-32 checksum comment
// embedded in a materialized view's generated POST_INSERT trigger
// body, mirroring the original MaterializedView.CHECKSUM_COMMENT_TEMPLATE.
// The updater uses this marker to decide whether a materialized view's
// cached data is already up to date with its defining query.
const MaterializedViewChecksumPrefix = "MATERIALIZED VIEW CHECKSUM "

// MaterializedView behaves like a table (it has real backing storage)
// whose contents are derived from RefTable by the query rooted at
// Root. The DB triggers generated for it carry its checksum marker and
// do not refresh its rows incrementally.
type MaterializedView struct {
	Table
	grain    *Grain
	RefTable *Table
	Root     *expr.Node
	Checksum uint32
}

func (mv *MaterializedView) GrainName() string { return mv.grain.Name }
func (mv *MaterializedView) ViewName() string  { return mv.Name }

// NewMaterializedView builds a materialized view over refTable.
// checksum should be the CRC-32 of the MV's canonical CSQL definition,
// used to detect whether a live trigger body is stale.
func NewMaterializedView(name string, refTable *Table, root *expr.Node, checksum uint32) *MaterializedView {
	mv := &MaterializedView{
		Table:    *NewTable(name, true),
		RefTable: refTable,
		Root:     root,
		Checksum: checksum,
	}
	mv.Table.Name = name
	expr.Bind(root, mv)
	return mv
}

// TriggerMarker renders the checksum comment embedded in the
// generated POST_INSERT trigger body on RefTable.
func (mv *MaterializedView) TriggerMarker() string {
	return MaterializedViewChecksumPrefix + formatChecksum(mv.Checksum)
}

func formatChecksum(c uint32) string {
	const hexDigits = "0123456789ABCDEF"
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = hexDigits[c&0xF]
		c >>= 4
	}
	return string(buf)
}
