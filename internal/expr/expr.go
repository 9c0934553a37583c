// Package expr implements the typed SQL expression tree used inside
// views, parameterized views, computed materialized-view sources and
// check-like predicates.
//
// Node is a single tagged-variant type rather than a class hierarchy
// with a Visitor: every operation (CSQL rendering, type inference,
// field resolution) is a package-level function that switches on
// Node.Kind, so adding a new operation never requires touching every
// node "type".
package expr

// ValueType is the type of an expression node, as inferred from its
// structure and (for FieldRef) its resolved column.
type ValueType int

const (
	Undefined ValueType = iota
	Logic
	Numeric
	Text
	Date
	Bit
	Blob
)

func (t ValueType) String() string {
	switch t {
	case Logic:
		return "LOGIC"
	case Numeric:
		return "NUMERIC"
	case Text:
		return "TEXT"
	case Date:
		return "DATE"
	case Bit:
		return "BIT"
	case Blob:
		return "BLOB"
	default:
		return "UNDEFINED"
	}
}

// Kind tags the variant a Node represents.
type Kind int

const (
	KindParenthesized Kind = iota
	KindRelop
	KindIn
	KindBetween
	KindIsNull
	KindNot
	KindBinaryLogicalOp
	KindBinaryTermOp
	KindUnaryMinus
	KindNumericLiteral
	KindTextLiteral
	KindFieldRef
)

// RelopKind enumerates the comparison operators of a Relop node.
type RelopKind int

const (
	GT RelopKind = iota
	LS
	GTEQ
	LSEQ
	NTEQ
	EQ
	LIKE
)

var relopText = map[RelopKind]string{
	GT: " > ", LS: " < ", GTEQ: " >= ", LSEQ: " <= ",
	NTEQ: " <> ", EQ: " = ", LIKE: " LIKE ",
}

// LogicalKind enumerates the n-ary boolean connectives.
type LogicalKind int

const (
	AND LogicalKind = iota
	OR
)

var logicalText = map[LogicalKind]string{AND: " AND ", OR: " OR "}

// TermKind enumerates the n-ary arithmetic/string operators.
type TermKind int

const (
	PLUS TermKind = iota
	MINUS
	TIMES
	OVER
	CONCAT
)

var termText = map[TermKind]string{
	PLUS: " + ", MINUS: " - ", TIMES: " * ", OVER: " / ", CONCAT: " || ",
}

// ViewRef identifies the view (or parameterized view / materialized
// view source) that owns an expression tree. It is a non-owning
// back-reference: expr never imports the schema package that defines
// the concrete view types.
type ViewRef interface {
	GrainName() string
	ViewName() string
}

// TableRef is a table reference visible to an expression tree during
// field resolution: either a base table or an aliased subquery source.
// The schema package supplies concrete implementations; expr only
// needs to ask "what grain/alias is this" and "what type does this
// column have".
type TableRef interface {
	GrainName() string
	Alias() string
	ColumnType(columnName string) (ValueType, bool)
}

// Node is one node of an expression tree. Only the fields relevant to
// Kind are populated; see the Kind constants for which fields apply.
type Node struct {
	Kind Kind
	view ViewRef

	// Parenthesized.Inner, IsNull.Inner, Not.Inner, UnaryMinus.Inner
	Inner *Node

	// Relop.Left/Right, In.Left, Between.Left
	Left  *Node
	Right *Node

	// Between only
	Low  *Node
	High *Node

	// In.Operands, BinaryLogicalOp.Operands, BinaryTermOp.Operands
	Operands []*Node

	RelopOp   RelopKind
	LogicalOp LogicalKind
	TermOp    TermKind

	// NumericLiteral.LexValue, TextLiteral.LexValue
	LexValue string

	// FieldRef
	GrainName    string
	TableOrAlias string
	ColumnName   string
	resolved     bool
	resolvedType ValueType
}

// View returns the node's owning view, or nil if it has not been
// bound yet (see Bind).
func (n *Node) View() ViewRef { return n.view }

// Bind attaches owner to n and every descendant. Expression trees are
// typically built bottom-up by a parser before the owning view is
// known, then bound once when the view registers them.
func Bind(n *Node, owner ViewRef) {
	if n == nil {
		return
	}
	n.view = owner
	Walk(n, func(c *Node) bool {
		c.view = owner
		return true
	})
}

// children returns n's direct child nodes, in evaluation order. It is
// the single place that knows the shape of every Kind for
// ValidateTypes, Walk and ResolveFieldRefs (through Walk); CSQL and
// Type switch on Kind themselves.
func (n *Node) children() []*Node {
	switch n.Kind {
	case KindParenthesized, KindIsNull, KindNot, KindUnaryMinus:
		return []*Node{n.Inner}
	case KindRelop:
		return []*Node{n.Left, n.Right}
	case KindIn:
		out := make([]*Node, 0, 1+len(n.Operands))
		out = append(out, n.Left)
		out = append(out, n.Operands...)
		return out
	case KindBetween:
		return []*Node{n.Left, n.Low, n.High}
	case KindBinaryLogicalOp, KindBinaryTermOp:
		return n.Operands
	default:
		return nil
	}
}

// Walk visits every node in the tree rooted at n in pre-order,
// including n itself, calling fn for each. If fn returns false, Walk
// stops descending into that node's children (n itself is still
// visited before the decision is made).
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.children() {
		Walk(c, fn)
	}
}
