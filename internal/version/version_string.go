package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/celesta-db/celesta/internal/cerr"
)

var tagVersionRe = regexp.MustCompile(tagVersionPattern)

// Outcome is the result of comparing two VersionStrings.
type Outcome int

const (
	Lower Outcome = iota
	Equals
	Greater
	Inconsistent
)

func (o Outcome) String() string {
	switch o {
	case Lower:
		return "LOWER"
	case Equals:
		return "EQUALS"
	case Greater:
		return "GREATER"
	case Inconsistent:
		return "INCONSISTENT"
	default:
		return "UNKNOWN"
	}
}

// tagVersion is one "tag N.N.N" component of a VersionString, kept in
// declaration order so String() can reproduce the original text.
type tagVersion struct {
	tag   string
	parts []int
}

// VersionString is a comparable, semver-like version descriptor of the
// form "tag1 version1, tag2 version2, ...".
type VersionString struct {
	entries []tagVersion
}

var tagVersionPattern = `^([A-Za-z_][A-Za-z0-9_]*)\s+(\d+(?:\.\d+)*)$`

// Parse parses a VersionString from its canonical textual form. It
// fails with a CategorySchema *cerr.Error on malformed input.
func Parse(s string) (*VersionString, error) {
	items := strings.Split(s, ",")
	vs := &VersionString{entries: make([]tagVersion, 0, len(items))}
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			return nil, cerr.Schema(cerr.CodeIllegalState, "empty version tag component in %q", s)
		}
		m := tagVersionRe.FindStringSubmatch(trimmed)
		if m == nil {
			return nil, cerr.Schema(cerr.CodeIllegalState, "malformed version component %q in %q", trimmed, s)
		}
		tag, versionText := m[1], m[2]
		if seen[tag] {
			return nil, cerr.Schema(cerr.CodeIllegalState, "duplicate version tag %q in %q", tag, s)
		}
		seen[tag] = true

		parts, err := parseDottedInts(versionText)
		if err != nil {
			return nil, cerr.Wrap(cerr.CategorySchema, cerr.CodeIllegalState,
				fmt.Sprintf("malformed version number %q in %q", versionText, s), err)
		}
		vs.entries = append(vs.entries, tagVersion{tag: tag, parts: parts})
	}
	if len(vs.entries) == 0 {
		return nil, cerr.Schema(cerr.CodeIllegalState, "version string %q has no components", s)
	}
	return vs, nil
}

func parseDottedInts(s string) ([]int, error) {
	pieces := strings.Split(s, ".")
	out := make([]int, len(pieces))
	for i, p := range pieces {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// String renders the canonical form used both for storage in the
// system catalog and as the round-trip target of Parse.
func (v *VersionString) String() string {
	parts := make([]string, len(v.entries))
	for i, e := range v.entries {
		nums := make([]string, len(e.parts))
		for j, n := range e.parts {
			nums[j] = strconv.Itoa(n)
		}
		parts[i] = e.tag + " " + strings.Join(nums, ".")
	}
	return strings.Join(parts, ", ")
}

// Compare implements the ordering rules: for every tag shared between
// v and other, compare the dotted-integer sequences
// lexicographically. Tags present on only one side are ignored. If the
// shared tags disagree on direction the result is Inconsistent;
// otherwise it is the single agreed direction, or Equals if every
// shared tag compared equal.
func (v *VersionString) Compare(other *VersionString) Outcome {
	otherByTag := make(map[string][]int, len(other.entries))
	for _, e := range other.entries {
		otherByTag[e.tag] = e.parts
	}

	sawLower, sawGreater := false, false
	for _, e := range v.entries {
		otherParts, ok := otherByTag[e.tag]
		if !ok {
			continue
		}
		switch compareIntSlices(e.parts, otherParts) {
		case -1:
			sawLower = true
		case 1:
			sawGreater = true
		}
	}

	switch {
	case sawLower && sawGreater:
		return Inconsistent
	case sawLower:
		return Lower
	case sawGreater:
		return Greater
	default:
		return Equals
	}
}

// compareIntSlices performs lexicographic comparison of two
// dotted-integer sequences, treating a missing trailing component as 0
// (so "1.2" == "1.2.0").
func compareIntSlices(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}
