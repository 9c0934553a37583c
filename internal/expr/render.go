package expr

import "strings"

// CSQL renders n back to CelestaSQL text. It is the inverse of the
// parser: for any well-formed tree, Parse(CSQL(n)) reproduces a tree
// equal to n.
func CSQL(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindParenthesized:
		return "(" + CSQL(n.Inner) + ")"

	case KindRelop:
		return CSQL(n.Left) + relopText[n.RelopOp] + CSQL(n.Right)

	case KindIn:
		parts := make([]string, len(n.Operands))
		for i, o := range n.Operands {
			parts[i] = CSQL(o)
		}
		return CSQL(n.Left) + " IN (" + strings.Join(parts, ", ") + ")"

	case KindBetween:
		return CSQL(n.Left) + " BETWEEN " + CSQL(n.Low) + " AND " + CSQL(n.High)

	case KindIsNull:
		// The original Java renderer omits the space before "IS NULL"
		// (expr.getCSQL() + "IS NULL"), which does not re-lex as valid
		// SQL when the operand is anything but a parenthesized or
		// literal token. Rendering with a leading space keeps CSQL a
		// true inverse of the parser, as required by the round-trip
		// property.
		return CSQL(n.Inner) + " IS NULL"

	case KindNot:
		return "NOT " + CSQL(n.Inner)

	case KindBinaryLogicalOp:
		parts := make([]string, len(n.Operands))
		for i, o := range n.Operands {
			parts[i] = CSQL(o)
		}
		return strings.Join(parts, logicalText[n.LogicalOp])

	case KindBinaryTermOp:
		parts := make([]string, len(n.Operands))
		for i, o := range n.Operands {
			parts[i] = CSQL(o)
		}
		return strings.Join(parts, termText[n.TermOp])

	case KindUnaryMinus:
		return "-" + CSQL(n.Inner)

	case KindNumericLiteral, KindTextLiteral:
		return n.LexValue

	case KindFieldRef:
		var b strings.Builder
		if n.GrainName != "" {
			b.WriteString(n.GrainName)
			b.WriteByte('.')
		}
		if n.TableOrAlias != "" {
			b.WriteString(n.TableOrAlias)
			b.WriteByte('.')
		}
		b.WriteString(n.ColumnName)
		return b.String()

	default:
		return ""
	}
}
