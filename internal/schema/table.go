package schema

import (
	"github.com/celesta-db/celesta/internal/cerr"
	"github.com/celesta-db/celesta/internal/expr"
)

// Table is a named collection of columns within a grain, following
// a construction → finalization → frozen lifecycle. Before pkFinalized,
// AddColumn, AddPKColumn, and NewForeignKey mutate the table freely;
// afterward they fail with ILLEGAL_STATE.
type Table struct {
	Name       string
	Autoupdate bool
	Versioned  bool

	grain *Grain

	columnOrder []string
	columns     map[string]*Column

	pkColumns   []string
	pkFinalized bool

	foreignKeys []*ForeignKey
}

// NewTable creates an empty table. It is added to a grain via
// Grain.AddTable.
func NewTable(name string, autoupdate bool) *Table {
	return &Table{
		Name:       name,
		Autoupdate: autoupdate,
		columns:    make(map[string]*Column),
	}
}

// Grain returns the table's owning grain, or nil before it is added
// to one.
func (t *Table) Grain() *Grain { return t.grain }

// AddColumn appends a column to the table. Fails with ILLEGAL_STATE
// once the table's PK has been finalized, and with DUPLICATE_COLUMN
// if the name is already used.
func (t *Table) AddColumn(c *Column) error {
	if t.pkFinalized {
		return cerr.Schema(cerr.CodeIllegalState, "table %s: cannot add column %s after finalization", t.Name, c.Name)
	}
	if _, exists := t.columns[c.Name]; exists {
		return cerr.Schema(cerr.CodeDuplicateColumn, "table %s: duplicate column %s", t.Name, c.Name)
	}
	c.table = t
	t.columns[c.Name] = c
	t.columnOrder = append(t.columnOrder, c.Name)
	return nil
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// Columns returns the table's columns in declaration order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columnOrder))
	for i, n := range t.columnOrder {
		out[i] = t.columns[n]
	}
	return out
}

// AddPKColumn appends columnName to the (not-yet-finalized) primary
// key, in the order primary key columns should appear.
func (t *Table) AddPKColumn(columnName string) error {
	if t.pkFinalized {
		return cerr.Schema(cerr.CodeIllegalState, "table %s: PK already finalized", t.Name)
	}
	if _, ok := t.columns[columnName]; !ok {
		return cerr.Schema(cerr.CodeUnknownColumn, "table %s: PK references unknown column %s", t.Name, columnName)
	}
	for _, existing := range t.pkColumns {
		if existing == columnName {
			return cerr.Schema(cerr.CodeDuplicateColumn, "table %s: column %s already in PK", t.Name, columnName)
		}
	}
	t.pkColumns = append(t.pkColumns, columnName)
	return nil
}

// FinalizePK freezes the table's primary key. A table's PK must be
// non-empty before it is used.
func (t *Table) FinalizePK() error {
	if t.pkFinalized {
		return cerr.Schema(cerr.CodeIllegalState, "table %s: PK already finalized", t.Name)
	}
	if len(t.pkColumns) == 0 {
		return cerr.Schema(cerr.CodeMissingPK, "table %s: primary key must be non-empty", t.Name)
	}
	t.pkFinalized = true
	return nil
}

// PKColumns returns the finalized primary key column names, in order.
// Callers must not mutate the returned slice.
func (t *Table) PKColumns() []string { return t.pkColumns }

// PKFinalized reports whether FinalizePK has run.
func (t *Table) PKFinalized() bool { return t.pkFinalized }

// ForeignKeys returns the table's foreign keys in declaration order.
func (t *Table) ForeignKeys() []*ForeignKey { return t.foreignKeys }

// ResolveReferences resolves every foreign key belonging to t against
// score: the referenced table must exist in the referenced grain, and
// the referenced columns must equal that table's primary key, in
// order.
func (t *Table) ResolveReferences(score *Score) error {
	for _, fk := range t.foreignKeys {
		if err := fk.resolveReferences(score); err != nil {
			return err
		}
	}
	return nil
}

// GrainName implements expr.TableRef, treating a bare table (used
// unaliased, e.g. inside its own check expressions) as its own alias.
func (t *Table) GrainName() string {
	if t.grain == nil {
		return ""
	}
	return t.grain.Name
}

// Alias implements expr.TableRef for an unaliased table reference.
func (t *Table) Alias() string { return t.Name }

// ColumnType implements expr.TableRef.
func (t *Table) ColumnType(name string) (expr.ValueType, bool) {
	c, ok := t.columns[name]
	if !ok {
		return expr.Undefined, false
	}
	return c.ValueType(), true
}

// AliasedTableRef wraps a Table with an explicit alias, used when
// building the TableRef list for a view's FROM clause.
type AliasedTableRef struct {
	Table *Table
	As    string
}

func (a AliasedTableRef) GrainName() string { return a.Table.GrainName() }
func (a AliasedTableRef) Alias() string     { return a.As }
func (a AliasedTableRef) ColumnType(name string) (expr.ValueType, bool) {
	return a.Table.ColumnType(name)
}
