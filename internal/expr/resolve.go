package expr

import "github.com/celesta-db/celesta/internal/cerr"

// ResolveFieldRefs walks n and resolves every FieldRef against tables,
// setting its inferred type on success. It mirrors the matching rules
// of the original resolveFieldRefs: an unqualified column name must be
// unambiguous across all of tables; an alias-qualified name is matched
// against that one table; a grain-and-alias-qualified name requires an
// exact match on both.
func ResolveFieldRefs(n *Node, tables []TableRef) error {
	var walkErr error
	Walk(n, func(node *Node) bool {
		if walkErr != nil {
			return false
		}
		if node.Kind != KindFieldRef {
			return true
		}
		if err := resolveOne(node, tables); err != nil {
			walkErr = err
			return false
		}
		return true
	})
	return walkErr
}

func resolveOne(node *Node, tables []TableRef) error {
	var foundCounter int
	var matchedType ValueType

	for _, t := range tables {
		switch {
		case node.GrainName != "":
			if node.GrainName == t.GrainName() && node.TableOrAlias == t.Alias() {
				ct, ok := t.ColumnType(node.ColumnName)
				if !ok {
					continue
				}
				foundCounter++
				matchedType = ct
			}
		case node.TableOrAlias != "":
			if node.TableOrAlias == t.Alias() {
				ct, ok := t.ColumnType(node.ColumnName)
				if !ok {
					continue
				}
				foundCounter++
				matchedType = ct
			}
		default:
			ct, ok := t.ColumnType(node.ColumnName)
			if !ok {
				continue
			}
			foundCounter++
			matchedType = ct
		}
	}

	switch {
	case foundCounter == 0:
		return cerr.Schema(cerr.CodeUnresolvedField, "cannot resolve field reference %s", fieldRefLabel(node))
	case foundCounter > 1:
		return cerr.Schema(cerr.CodeAmbiguousField, "ambiguous field reference %s matches %d columns", fieldRefLabel(node), foundCounter)
	}

	node.resolved = true
	node.resolvedType = matchedType
	return nil
}

func fieldRefLabel(n *Node) string {
	label := n.ColumnName
	if n.TableOrAlias != "" {
		label = n.TableOrAlias + "." + label
	}
	if n.GrainName != "" {
		label = n.GrainName + "." + label
	}
	return label
}
