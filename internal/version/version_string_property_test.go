package version

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genTagVersion builds a single "tag N.N" component from small integer
// ranges so generated strings stay well inside int range on all platforms.
func genTagVersion() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("app", "core", "db", "ui"),
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
	).Map(func(vs []interface{}) string {
		tag := vs[0].(string)
		major := vs[1].(int)
		minor := vs[2].(int)
		return fmt.Sprintf("%s %d.%d", tag, major, minor)
	})
}

// TestProperty_VersionStringRoundTrip validates that parsing a
// version string and rendering it back produces the original text.
func TestProperty_VersionStringRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("parse(toString(v)) reproduces the same rendering", prop.ForAll(
		func(text string) bool {
			vs, err := Parse(text)
			if err != nil {
				return true // not a well-formed input, law doesn't apply
			}
			reparsed, err := Parse(vs.String())
			if err != nil {
				return false
			}
			return reparsed.String() == vs.String()
		},
		genTagVersion(),
	))

	properties.TestingRun(t)
}

// TestProperty_VersionCompareAntisymmetric validates that Compare is
// antisymmetric: swapping operands flips Lower/Greater and preserves
// Equals/Inconsistent.
func TestProperty_VersionCompareAntisymmetric(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Compare(a,b) and Compare(b,a) are mirror images", prop.ForAll(
		func(aText, bText string) bool {
			a, err1 := Parse(aText)
			b, err2 := Parse(bText)
			if err1 != nil || err2 != nil {
				return true
			}
			forward := a.Compare(b)
			backward := b.Compare(a)
			switch forward {
			case Lower:
				return backward == Greater
			case Greater:
				return backward == Lower
			case Equals:
				return backward == Equals
			case Inconsistent:
				return backward == Inconsistent
			default:
				return false
			}
		},
		genTagVersion(),
		genTagVersion(),
	))

	properties.TestingRun(t)
}

func TestProperty_CanonicalFormHasNoExtraWhitespace(t *testing.T) {
	vs, err := Parse("app 1.2,   db 3.4")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(vs.String(), "  ") {
		t.Errorf("canonical form should collapse whitespace: %q", vs.String())
	}
}
