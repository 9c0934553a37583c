// Package dbmeta holds the introspection DTOs the updater compares
// against the declared schema model: one type per catalog object
// (column, primary key, foreign key, index, sequence), each with a
// Reflects predicate that is the sole oracle of whether DDL is needed.
// Normalization of dialect-specific text (default value literals,
// identity/sequence equivalence) is supplied by the DB adaptor that
// constructs these DTOs from a live connection, so this package stays
// dialect-neutral.
package dbmeta

import "github.com/celesta-db/celesta/internal/schema"

// Normalizer canonicalizes dialect-specific text so Reflects can
// compare model and database values without knowing which database
// produced them. Each adaptor package supplies its own implementation.
type Normalizer interface {
	// NormalizeDefault renders a column default literal (from either
	// the model or a live database) into a canonical comparable form.
	NormalizeDefault(literal string) string
}

// DbColumnInfo describes one column as introspected from a live
// database.
type DbColumnInfo struct {
	Name        string
	Kind        schema.ColumnKind
	Nullable    bool
	Identity    bool
	Length      int
	MaxLength   bool
	DefaultText string
}

// Reflects reports whether col's live shape matches what the model
// column c now declares, using norm to canonicalize default literals
// so dialect-specific rendering differences don't count as drift.
func (col DbColumnInfo) Reflects(c *schema.Column, norm Normalizer) bool {
	if col.Name != c.Name || col.Kind != c.Kind || col.Nullable != c.Nullable {
		return false
	}
	if col.Kind == schema.KindInteger && col.Identity != c.Identity {
		return false
	}
	if col.Kind == schema.KindString {
		if col.MaxLength != c.MaxLength {
			return false
		}
		if !col.MaxLength && col.Length != c.Length {
			return false
		}
	}
	return norm.NormalizeDefault(col.DefaultText) == norm.NormalizeDefault(c.Default)
}

// DbPkInfo describes a table's primary key as introspected from a
// live database.
type DbPkInfo struct {
	Name    string
	Columns []string
}

// Reflects reports whether pk matches t's finalized primary key,
// column-for-column in order.
func (pk DbPkInfo) Reflects(t *schema.Table) bool {
	want := t.PKColumns()
	if len(pk.Columns) != len(want) {
		return false
	}
	for i, c := range pk.Columns {
		if c != want[i] {
			return false
		}
	}
	return true
}

// DbFkInfo describes a foreign key as introspected from a live
// database.
type DbFkInfo struct {
	Name                string
	TableName           string
	Columns             []string
	ReferencedGrainName string
	ReferencedTableName string
	ReferencedColumns   []string
}

// Reflects reports whether fk matches the model foreign key.
func (fk DbFkInfo) Reflects(model *schema.ForeignKey) bool {
	if fk.ReferencedGrainName != model.ReferencedGrainName() || fk.ReferencedTableName != model.ReferencedTableName() {
		return false
	}
	return stringSlicesEqual(fk.Columns, model.Columns()) &&
		stringSlicesEqual(fk.ReferencedColumns, model.ReferencedColumns())
}

// DbIndexInfo describes an index as introspected from a live database.
type DbIndexInfo struct {
	Name      string
	TableName string
	Columns   []string
}

// Reflects reports whether idx matches the model index.
func (idx DbIndexInfo) Reflects(model *schema.Index) bool {
	if idx.TableName != model.Table.Name {
		return false
	}
	return stringSlicesEqual(idx.Columns, model.Columns)
}

// DbSequenceInfo describes a sequence as introspected from a live
// database.
type DbSequenceInfo struct {
	Name      string
	Start     int64
	Increment int64
	Min       int64
	Max       int64
	Cycle     bool
}

// Reflects reports whether seq matches the model sequence.
func (seq DbSequenceInfo) Reflects(model *schema.Sequence) bool {
	return seq.Start == model.Start &&
		seq.Increment == model.Increment &&
		seq.Min == model.Min &&
		seq.Max == model.Max &&
		seq.Cycle == model.Cycle
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
