package schema

import "github.com/celesta-db/celesta/internal/cerr"

// ForeignKey belongs to exactly one parent table. It is built
// incrementally (AddColumn, SetReferencedTable) and resolved once,
// during the owning grain's finalization pass.
type ForeignKey struct {
	parent *Table

	columns []string

	referencedGrainName string
	referencedTableName string
	referencedColumns   []string

	referencedTable *Table // set by resolveReferences
}

// NewForeignKey creates a foreign key belonging to parent and
// registers it in parent's foreign key set immediately, before any
// column or reference is attached. Call AddColumn for each local
// column, then SetReferencedTable. Fails with ILLEGAL_STATE if
// parent's primary key is already finalized.
func NewForeignKey(parent *Table) (*ForeignKey, error) {
	if parent.pkFinalized {
		return nil, cerr.Schema(cerr.CodeIllegalState, "table %s: cannot add foreign key after finalization", parent.Name)
	}
	fk := &ForeignKey{parent: parent}
	parent.foreignKeys = append(parent.foreignKeys, fk)
	return fk, nil
}

// AddColumn appends a local column to the FK by name. The column must
// already exist on the parent table and must not repeat.
func (fk *ForeignKey) AddColumn(columnName string) error {
	if _, ok := fk.parent.Column(columnName); !ok {
		return cerr.Schema(cerr.CodeUnknownColumn, "foreign key on %s: unknown column %s", fk.parent.Name, columnName)
	}
	for _, c := range fk.columns {
		if c == columnName {
			return cerr.Schema(cerr.CodeDuplicateColumn, "foreign key: duplicate local column %s", columnName)
		}
	}
	fk.columns = append(fk.columns, columnName)
	return nil
}

// Columns returns the FK's local columns, in order.
func (fk *ForeignKey) Columns() []string { return fk.columns }

// SetReferencedTable registers the (grainName, tableName, columns)
// this FK points at. Resolution against the actual Table happens
// later in resolveReferences; until then ReferencedTable returns nil.
func (fk *ForeignKey) SetReferencedTable(grainName, tableName string, columns []string) {
	fk.referencedGrainName = grainName
	fk.referencedTableName = tableName
	fk.referencedColumns = append([]string(nil), columns...)
}

// ReferencedColumns returns the referenced column names, in order.
func (fk *ForeignKey) ReferencedColumns() []string { return fk.referencedColumns }

// ReferencedGrainName is the grain name given to SetReferencedTable.
func (fk *ForeignKey) ReferencedGrainName() string { return fk.referencedGrainName }

// ReferencedTableName is the table name given to SetReferencedTable.
func (fk *ForeignKey) ReferencedTableName() string { return fk.referencedTableName }

// ReferencedTable returns the resolved referenced table, or nil if
// resolveReferences has not yet run.
func (fk *ForeignKey) ReferencedTable() *Table { return fk.referencedTable }

// ParentTable returns the table this FK belongs to.
func (fk *ForeignKey) ParentTable() *Table { return fk.parent }

// resolveReferences looks up the referenced grain and table in score
// and requires the referenced columns to equal that table's primary
// key, in order.
func (fk *ForeignKey) resolveReferences(score *Score) error {
	g, ok := score.Grain(fk.referencedGrainName)
	if !ok {
		return cerr.Schema(cerr.CodeUnknownColumn, "foreign key on %s: referenced grain %s not found",
			fk.parent.Name, fk.referencedGrainName)
	}
	t, ok := g.Table(fk.referencedTableName)
	if !ok {
		return cerr.Schema(cerr.CodeUnknownColumn, "foreign key on %s: referenced table %s.%s not found",
			fk.parent.Name, fk.referencedGrainName, fk.referencedTableName)
	}
	pk := t.PKColumns()
	if len(pk) != len(fk.referencedColumns) {
		return cerr.Schema(cerr.CodeFKReferencedColumnsNotPK,
			"foreign key on %s: referenced columns do not match primary key of %s.%s",
			fk.parent.Name, fk.referencedGrainName, fk.referencedTableName)
	}
	for i, name := range fk.referencedColumns {
		if pk[i] != name {
			return cerr.Schema(cerr.CodeFKReferencedColumnsNotPK,
				"foreign key on %s: referenced columns must equal the primary key of %s.%s in order",
				fk.parent.Name, fk.referencedGrainName, fk.referencedTableName)
		}
	}
	fk.referencedTable = t
	return nil
}
