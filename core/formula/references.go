// Package formula - Reference analysis
package formula

import (
	"strings"
)

// Reference is an environment lookup made by a formula
type Reference struct {
	// Name is the root identifier
	Name string

	// Path is the member path below Name, empty for plain identifiers
	Path []string
}

// String returns the dotted form of the reference
func (r Reference) String() string {
	if len(r.Path) == 0 {
		return r.Name
	}
	return r.Name + "." + strings.Join(r.Path, ".")
}

// References lists every environment lookup in an AST, in source order.
// Repeated lookups are reported once.
func References(n Node) []Reference {
	var refs []Reference
	seen := make(map[string]bool)

	add := func(r Reference) {
		key := r.String()
		if !seen[key] {
			seen[key] = true
			refs = append(refs, r)
		}
	}

	Walk(n, func(n Node) bool {
		switch node := n.(type) {
		case *Identifier:
			add(Reference{Name: node.Name})
		case *MemberAccess:
			if base, ok := node.Base.(*Identifier); ok {
				add(Reference{Name: base.Name, Path: append([]string(nil), node.Path...)})
				return false
			}
		}
		return true
	})
	return refs
}

// Walk visits n and its children depth-first.
// Children are skipped when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	switch node := n.(type) {
	case *MemberAccess:
		Walk(node.Base, fn)
	case *UnaryOp:
		Walk(node.Operand, fn)
	case *BinaryOp:
		Walk(node.Left, fn)
		Walk(node.Right, fn)
	case *TernaryOp:
		Walk(node.Cond, fn)
		Walk(node.Then, fn)
		Walk(node.Else, fn)
	case *Call:
		for _, arg := range node.Args {
			Walk(arg, fn)
		}
	}
}
