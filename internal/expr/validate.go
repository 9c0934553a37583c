package expr

import "github.com/celesta-db/celesta/internal/cerr"

// comparable reports whether t is one of the types that Relop, In and
// Between accept as their comparand type.
func comparable(t ValueType) bool {
	return t == Date || t == Numeric || t == Text
}

// ValidateTypes walks n bottom-up and checks the type constraints that
// depend on operand types being resolved (construction time already
// rejected everything that can be decided from Kind alone). Call this
// after ResolveFieldRefs.
func ValidateTypes(n *Node) error {
	var walkErr error
	var visit func(*Node) bool
	visit = func(node *Node) bool {
		for _, c := range node.children() {
			if !visit(c) {
				return false
			}
		}
		if err := validateOne(node); err != nil {
			walkErr = err
			return false
		}
		return true
	}
	visit(n)
	return walkErr
}

func validateOne(n *Node) error {
	switch n.Kind {
	case KindRelop:
		lt := Type(n.Left)
		if !comparable(lt) {
			return cerr.Schema(cerr.CodeTypeMismatch, "comparison left operand must be DATE, NUMERIC or TEXT, got %s", lt)
		}
		if n.RelopOp == LIKE && lt != Text {
			return cerr.Schema(cerr.CodeTypeMismatch, "LIKE requires a TEXT left operand, got %s", lt)
		}
		if rt := Type(n.Right); rt != lt {
			return cerr.Schema(cerr.CodeTypeMismatch, "comparison operands must match: left is %s, right is %s", lt, rt)
		}
		return nil

	case KindIn:
		lt := Type(n.Left)
		if !comparable(lt) {
			return cerr.Schema(cerr.CodeTypeMismatch, "IN comparand must be DATE, NUMERIC or TEXT, got %s", lt)
		}
		for _, o := range n.Operands {
			if ot := Type(o); ot != lt {
				return cerr.Schema(cerr.CodeTypeMismatch, "IN operand type %s does not match comparand type %s", ot, lt)
			}
		}
		return nil

	case KindBetween:
		lt := Type(n.Left)
		if !comparable(lt) {
			return cerr.Schema(cerr.CodeTypeMismatch, "BETWEEN comparand must be DATE, NUMERIC or TEXT, got %s", lt)
		}
		if t := Type(n.Low); t != lt {
			return cerr.Schema(cerr.CodeTypeMismatch, "BETWEEN lower bound type %s does not match comparand type %s", t, lt)
		}
		if t := Type(n.High); t != lt {
			return cerr.Schema(cerr.CodeTypeMismatch, "BETWEEN upper bound type %s does not match comparand type %s", t, lt)
		}
		return nil

	case KindBinaryTermOp:
		want := Numeric
		if n.TermOp == CONCAT {
			want = Text
		}
		for _, o := range n.Operands {
			if t := Type(o); t != want {
				return cerr.Schema(cerr.CodeTypeMismatch, "term operator operand must be %s, got %s", want, t)
			}
		}
		return nil

	case KindUnaryMinus:
		if t := Type(n.Inner); t != Numeric {
			return cerr.Schema(cerr.CodeTypeMismatch, "unary minus operand must be NUMERIC, got %s", t)
		}
		return nil

	case KindFieldRef:
		if !n.resolved {
			return cerr.Schema(cerr.CodeUnresolvedField, "field reference %s was never resolved", fieldRefLabel(n))
		}
		return nil

	default:
		return nil
	}
}
