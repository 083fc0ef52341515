// Package formula - Abstract syntax tree
package formula

import (
	"strings"
)

// Node is a parsed formula expression
type Node interface {
	// Pos is the byte offset of the node in the formula text
	Pos() int

	// String renders the node as canonical formula text
	String() string

	node()
}

// Literal is a number, string or boolean constant
type Literal struct {
	Value  Value
	Offset int
}

// Identifier references an environment binding
type Identifier struct {
	Name   string
	Offset int
}

// MemberAccess is a dotted path such as included_quotas.seat.value
type MemberAccess struct {
	Base   Node
	Path   []string
	Offset int
}

// BinaryOp is an arithmetic or comparison operation
type BinaryOp struct {
	Op     string
	Left   Node
	Right  Node
	Offset int
}

// UnaryOp is a prefix operation (only negation exists)
type UnaryOp struct {
	Op      string
	Operand Node
	Offset  int
}

// TernaryOp is cond ? then : else
type TernaryOp struct {
	Cond   Node
	Then   Node
	Else   Node
	Offset int
}

// Call is a builtin function call
type Call struct {
	Name   string
	Args   []Node
	Offset int
}

func (n *Literal) Pos() int      { return n.Offset }
func (n *Identifier) Pos() int   { return n.Offset }
func (n *MemberAccess) Pos() int { return n.Offset }
func (n *BinaryOp) Pos() int     { return n.Offset }
func (n *UnaryOp) Pos() int      { return n.Offset }
func (n *TernaryOp) Pos() int    { return n.Offset }
func (n *Call) Pos() int         { return n.Offset }

func (*Literal) node()      {}
func (*Identifier) node()   {}
func (*MemberAccess) node() {}
func (*BinaryOp) node()     {}
func (*UnaryOp) node()      {}
func (*TernaryOp) node()    {}
func (*Call) node()         {}

func (n *Literal) String() string {
	return n.Value.String()
}

func (n *Identifier) String() string {
	return n.Name
}

func (n *MemberAccess) String() string {
	return n.Base.String() + "." + strings.Join(n.Path, ".")
}

func (n *BinaryOp) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}

func (n *UnaryOp) String() string {
	return "(" + n.Op + n.Operand.String() + ")"
}

func (n *TernaryOp) String() string {
	return "(" + n.Cond.String() + " ? " + n.Then.String() + " : " + n.Else.String() + ")"
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")"
}

// Builtin function names
const (
	FuncMax = "max"
	FuncMin = "min"
)

// IsBuiltin reports whether name is a callable function
func IsBuiltin(name string) bool {
	return name == FuncMax || name == FuncMin
}
