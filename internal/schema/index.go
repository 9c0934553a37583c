package schema

// Index is an ordered list of columns of one table, named uniquely
// within its grain.
type Index struct {
	Name    string
	Table   *Table
	Columns []string
}

// NewIndex builds an index over table's columns, in the given order.
func NewIndex(name string, table *Table, columns []string) *Index {
	return &Index{Name: name, Table: table, Columns: append([]string(nil), columns...)}
}

// Sequence is a named integer generator: start, increment, min/max
// bounds and a cycle flag.
type Sequence struct {
	Name      string
	Start     int64
	Increment int64
	Min       int64
	Max       int64
	Cycle     bool
}

// NewSequence builds a sequence with the given parameters.
func NewSequence(name string, start, increment, min, max int64, cycle bool) *Sequence {
	return &Sequence{Name: name, Start: start, Increment: increment, Min: min, Max: max, Cycle: cycle}
}
