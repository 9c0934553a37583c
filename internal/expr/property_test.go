package expr

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genNumericTree builds a small arithmetic expression tree over
// integer literals, deep enough to exercise nested rendering without
// generating pathologically large trees.
func genNumericTree(maxDepth int) gopter.Gen {
	if maxDepth <= 0 {
		return gen.IntRange(0, 999).Map(func(n int) *Node {
			return NumericLiteral(itoa(n))
		})
	}
	leaf := gen.IntRange(0, 999).Map(func(n int) *Node {
		return NumericLiteral(itoa(n))
	})
	return gen.OneGenOf(
		leaf,
		gopter.CombineGens(genNumericTree(maxDepth-1), genNumericTree(maxDepth-1)).
			Map(func(vs []interface{}) *Node {
				n, _ := BinaryTermOp(PLUS, vs[0].(*Node), vs[1].(*Node))
				return n
			}),
		genNumericTree(maxDepth-1).Map(func(v *Node) *Node {
			return UnaryMinus(v)
		}),
	)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// TestProperty_TypeInferenceIsDeterministic validates that Type(n) is
// a pure function of n's structure: calling it twice in a row, or
// after an unrelated ValidateTypes pass, gives the same answer.
func TestProperty_TypeInferenceIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Type(n) is stable across repeated calls", prop.ForAll(
		func(n *Node) bool {
			first := Type(n)
			second := Type(n)
			if first != second {
				return false
			}
			_ = ValidateTypes(n)
			return Type(n) == first
		},
		genNumericTree(3),
	))

	properties.TestingRun(t)
}

// TestProperty_CSQLIsStructural validates that structurally identical
// trees always render identically (CSQL is a pure function of tree
// shape, never of pointer identity).
func TestProperty_CSQLIsStructural(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("two independently-built trees with the same shape render identically", prop.ForAll(
		func(seed int) bool {
			a := buildFixedShape(seed)
			b := buildFixedShape(seed)
			return CSQL(a) == CSQL(b)
		},
		gen.IntRange(0, 999),
	))

	properties.TestingRun(t)
}

func buildFixedShape(seed int) *Node {
	left := NumericLiteral(itoa(seed))
	right := NumericLiteral(itoa(seed + 1))
	sum, _ := BinaryTermOp(PLUS, left, right)
	return Relop(GT, sum, NumericLiteral("0"))
}
