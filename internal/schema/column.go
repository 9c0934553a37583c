// Package schema is the in-memory model of a Celesta score: grains,
// tables, columns, keys, indices, sequences and views, built in a
// phased construction → finalization → frozen lifecycle. It supplies
// the concrete expr.TableRef/expr.ViewRef implementations the
// expression tree resolves field references against.
package schema

import (
	"github.com/celesta-db/celesta/internal/cerr"
	"github.com/celesta-db/celesta/internal/expr"
)

// ColumnKind tags which of the six column variants a Column is.
type ColumnKind int

const (
	KindInteger ColumnKind = iota
	KindFloating
	KindString
	KindBinary
	KindBoolean
	KindDateTime
)

// Column is a single table column. Only the fields relevant to Kind
// are meaningful; see the ColumnKind constants.
type Column struct {
	Name     string
	Kind     ColumnKind
	Nullable bool

	// Default is the column's default literal, rendered as CelestaSQL
	// text (e.g. "0", "'active'"), or "" for no default.
	Default string

	Identity bool // IntegerColumn only

	// StringColumn only. MaxLength true means declared as MAX rather
	// than a fixed length; Length is meaningless when MaxLength is set.
	Length    int
	MaxLength bool

	table *Table
}

// Table returns the column's owning table, or nil if it has not been
// added to one yet.
func (c *Column) Table() *Table { return c.table }

// ValueType maps a column's kind to the expression-tree type it
// participates in when referenced from CelestaSQL.
func (c *Column) ValueType() expr.ValueType {
	switch c.Kind {
	case KindInteger, KindFloating:
		return expr.Numeric
	case KindString:
		return expr.Text
	case KindBoolean:
		return expr.Bit
	case KindDateTime:
		return expr.Date
	case KindBinary:
		return expr.Blob
	default:
		return expr.Undefined
	}
}

// NewIntegerColumn builds an IntegerColumn, optionally auto-incrementing.
func NewIntegerColumn(name string, nullable, identity bool, defaultLiteral string) *Column {
	return &Column{Name: name, Kind: KindInteger, Nullable: nullable, Identity: identity, Default: defaultLiteral}
}

// NewFloatingColumn builds a FloatingColumn.
func NewFloatingColumn(name string, nullable bool, defaultLiteral string) *Column {
	return &Column{Name: name, Kind: KindFloating, Nullable: nullable, Default: defaultLiteral}
}

// NewStringColumn builds a StringColumn with a fixed length.
func NewStringColumn(name string, nullable bool, length int, defaultLiteral string) *Column {
	return &Column{Name: name, Kind: KindString, Nullable: nullable, Length: length, Default: defaultLiteral}
}

// NewMaxStringColumn builds a StringColumn declared as MAX-length.
func NewMaxStringColumn(name string, nullable bool, defaultLiteral string) *Column {
	return &Column{Name: name, Kind: KindString, Nullable: nullable, MaxLength: true, Default: defaultLiteral}
}

// NewBinaryColumn builds a BinaryColumn.
func NewBinaryColumn(name string, nullable bool, defaultLiteral string) *Column {
	return &Column{Name: name, Kind: KindBinary, Nullable: nullable, Default: defaultLiteral}
}

// NewBooleanColumn builds a BooleanColumn.
func NewBooleanColumn(name string, nullable bool, defaultLiteral string) *Column {
	return &Column{Name: name, Kind: KindBoolean, Nullable: nullable, Default: defaultLiteral}
}

// NewDateTimeColumn builds a DateTimeColumn.
func NewDateTimeColumn(name string, nullable bool, defaultLiteral string) *Column {
	return &Column{Name: name, Kind: KindDateTime, Nullable: nullable, Default: defaultLiteral}
}

var errIllegalState = func(format string, args ...interface{}) error {
	return cerr.Schema(cerr.CodeIllegalState, format, args...)
}
