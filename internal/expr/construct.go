package expr

import "github.com/celesta-db/celesta/internal/cerr"

// Type returns n's inferred type. For FieldRef this is Undefined
// until ResolveFieldRefs has run; every other kind is statically
// typed from its structure alone, independent of resolution state.
func Type(n *Node) ValueType {
	switch n.Kind {
	case KindParenthesized:
		return Type(n.Inner)
	case KindRelop, KindIn, KindBetween, KindIsNull, KindNot, KindBinaryLogicalOp:
		return Logic
	case KindBinaryTermOp:
		if n.TermOp == CONCAT {
			return Text
		}
		return Numeric
	case KindUnaryMinus:
		return Numeric
	case KindNumericLiteral:
		return Numeric
	case KindTextLiteral:
		return Text
	case KindFieldRef:
		if n.resolved {
			return n.resolvedType
		}
		return Undefined
	default:
		return Undefined
	}
}

// Parenthesized wraps inner so precedence survives CSQL rendering.
func Parenthesized(inner *Node) *Node {
	return &Node{Kind: KindParenthesized, Inner: inner}
}

// Relop builds a binary comparison. LIKE additionally requires the
// left operand be textual; that check is deferred to ValidateTypes
// since left may still be an unresolved FieldRef at construction time.
func Relop(op RelopKind, left, right *Node) *Node {
	return &Node{Kind: KindRelop, RelopOp: op, Left: left, Right: right}
}

// In builds a "left IN (operands...)" predicate. operands must be
// non-empty; the original grammar does not allow an empty list.
func In(left *Node, operands ...*Node) (*Node, error) {
	if len(operands) == 0 {
		return nil, cerr.Schema(cerr.CodeIllegalState, "IN requires at least one operand")
	}
	return &Node{Kind: KindIn, Left: left, Operands: operands}, nil
}

// Between builds a "left BETWEEN low AND high" predicate.
func Between(left, low, high *Node) *Node {
	return &Node{Kind: KindBetween, Left: left, Low: low, High: high}
}

// IsNull builds "inner IS NULL". inner must not already be a LOGIC
// expression: "true IS NULL" is not meaningful CelestaSQL.
func IsNull(inner *Node) (*Node, error) {
	if Type(inner) == Logic {
		return nil, cerr.Schema(cerr.CodeTypeMismatch, "IS NULL operand must not be a logical expression")
	}
	return &Node{Kind: KindIsNull, Inner: inner}, nil
}

// Not builds "NOT inner". inner must be a LOGIC expression.
func Not(inner *Node) (*Node, error) {
	if Type(inner) != Logic {
		return nil, cerr.Schema(cerr.CodeTypeMismatch, "NOT operand must be a logical expression, got %s", Type(inner))
	}
	return &Node{Kind: KindNot, Inner: inner}, nil
}

// BinaryLogicalOp builds an n-ary AND/OR over operands, all of which
// must be LOGIC expressions. A single-operand tree is legal.
func BinaryLogicalOp(op LogicalKind, operands ...*Node) (*Node, error) {
	if len(operands) == 0 {
		return nil, cerr.Schema(cerr.CodeIllegalState, "logical operator requires at least one operand")
	}
	for _, o := range operands {
		if Type(o) != Logic {
			return nil, cerr.Schema(cerr.CodeTypeMismatch, "logical operator operand must be a logical expression, got %s", Type(o))
		}
	}
	return &Node{Kind: KindBinaryLogicalOp, LogicalOp: op, Operands: operands}, nil
}

// BinaryTermOp builds an n-ary arithmetic or concatenation expression.
// A single-operand tree is legal. Whether operands must be NUMERIC or
// TEXT depends on op and is checked by ValidateTypes, since an operand
// may still be an unresolved FieldRef at construction time.
func BinaryTermOp(op TermKind, operands ...*Node) (*Node, error) {
	if len(operands) == 0 {
		return nil, cerr.Schema(cerr.CodeIllegalState, "term operator requires at least one operand")
	}
	return &Node{Kind: KindBinaryTermOp, TermOp: op, Operands: operands}, nil
}

// UnaryMinus builds "-inner".
func UnaryMinus(inner *Node) *Node {
	return &Node{Kind: KindUnaryMinus, Inner: inner}
}

// NumericLiteral builds a numeric literal, preserving lexValue exactly
// as lexed so CSQL rendering round-trips (e.g. "1.50" stays "1.50").
func NumericLiteral(lexValue string) *Node {
	return &Node{Kind: KindNumericLiteral, LexValue: lexValue}
}

// TextLiteral builds a string literal. lexValue is the already-quoted
// SQL text, e.g. "'hello'", matching the original lexer's convention.
func TextLiteral(lexValue string) *Node {
	return &Node{Kind: KindTextLiteral, LexValue: lexValue}
}

// FieldRef builds an unresolved column reference. grainName may only
// be non-empty when tableOrAlias is also non-empty: a fully-qualified
// reference always names both grain and table/alias.
func FieldRef(grainName, tableOrAlias, columnName string) (*Node, error) {
	if grainName != "" && tableOrAlias == "" {
		return nil, cerr.Schema(cerr.CodeIllegalState, "field reference with grain name %q must also specify a table or alias", grainName)
	}
	if columnName == "" {
		return nil, cerr.Schema(cerr.CodeIllegalState, "field reference requires a column name")
	}
	return &Node{Kind: KindFieldRef, GrainName: grainName, TableOrAlias: tableOrAlias, ColumnName: columnName}, nil
}
