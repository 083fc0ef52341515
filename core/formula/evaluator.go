// Package formula - Interpreter
package formula

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Evaluate interprets an AST against an environment.
// Neither the AST nor the environment is modified.
func Evaluate(n Node, env Env) (Value, error) {
	ev := evaluator{env: env}
	return ev.eval(n)
}

// Eval parses and evaluates formula text in one step
func Eval(src string, env Env) (Value, error) {
	n, err := Parse(src)
	if err != nil {
		return Null(), err
	}
	return Evaluate(n, env)
}

// EvaluateNumber evaluates an AST and requires a numeric result
func EvaluateNumber(n Node, env Env) (decimal.Decimal, error) {
	v, err := Evaluate(n, env)
	if err != nil {
		return decimal.Zero, err
	}
	if v.Kind() != KindNumber {
		return decimal.Zero, evalErr(ErrTypeMismatch, "formula produced %v, expected number", v.Kind())
	}
	return v.numberVal, nil
}

type evaluator struct {
	env Env
}

func (ev *evaluator) eval(n Node) (Value, error) {
	switch node := n.(type) {
	case *Literal:
		return node.Value, nil
	case *Identifier:
		v, ok := ev.env[node.Name]
		if !ok {
			return Null(), unknownIdentifier(node.Name)
		}
		return v, nil
	case *MemberAccess:
		return ev.evalMember(node)
	case *UnaryOp:
		return ev.evalUnary(node)
	case *BinaryOp:
		return ev.evalBinary(node)
	case *TernaryOp:
		return ev.evalTernary(node)
	case *Call:
		return ev.evalCall(node)
	case nil:
		return Null(), evalErr(ErrInvalidValue, "empty expression")
	default:
		return Null(), evalErr(ErrInvalidValue, "unsupported node %T", n)
	}
}

func (ev *evaluator) evalMember(node *MemberAccess) (Value, error) {
	v, err := ev.eval(node.Base)
	if err != nil {
		return Null(), err
	}

	path := node.Base.String()
	for _, seg := range node.Path {
		if v.Kind() != KindObject {
			return Null(), evalErr(ErrTypeMismatch, "cannot access member %q of %v %s", seg, v.Kind(), path)
		}
		path += "." + seg
		next, ok := v.GetAttr(seg)
		if !ok {
			return Null(), unknownIdentifier(path)
		}
		v = next
	}
	return v, nil
}

func (ev *evaluator) evalUnary(node *UnaryOp) (Value, error) {
	v, err := ev.eval(node.Operand)
	if err != nil {
		return Null(), err
	}
	if v.Kind() != KindNumber {
		return Null(), evalErr(ErrTypeMismatch, "operator %s requires a number, got %v", node.Op, v.Kind())
	}
	return Number(v.numberVal.Neg()), nil
}

func (ev *evaluator) evalBinary(node *BinaryOp) (Value, error) {
	left, err := ev.eval(node.Left)
	if err != nil {
		return Null(), err
	}
	right, err := ev.eval(node.Right)
	if err != nil {
		return Null(), err
	}

	switch node.Op {
	case "+", "-", "*", "/":
		return arithmetic(node.Op, left, right)
	case "===", "==", "!==", "!=", "<", "<=", ">", ">=":
		return compare(node.Op, left, right)
	default:
		return Null(), evalErr(ErrInvalidValue, "unknown operator %q", node.Op)
	}
}

func arithmetic(op string, left, right Value) (Value, error) {
	if left.Kind() != KindNumber || right.Kind() != KindNumber {
		return Null(), evalErr(ErrTypeMismatch, "operator %s requires numbers, got %v and %v", op, left.Kind(), right.Kind())
	}
	a, b := left.numberVal, right.numberVal

	switch op {
	case "+":
		return Number(a.Add(b)), nil
	case "-":
		return Number(a.Sub(b)), nil
	case "*":
		return Number(a.Mul(b)), nil
	default:
		if b.IsZero() {
			return Null(), evalErr(ErrDivisionByZero, "division by zero")
		}
		return Number(a.Div(b)), nil
	}
}

func compare(op string, left, right Value) (Value, error) {
	if left.Kind() != right.Kind() {
		return Null(), evalErr(ErrTypeMismatch, "cannot compare %v with %v", left.Kind(), right.Kind())
	}

	var cmp int
	switch left.Kind() {
	case KindNumber:
		cmp = left.numberVal.Cmp(right.numberVal)
	case KindString:
		cmp = strings.Compare(left.stringVal, right.stringVal)
	default:
		return Null(), evalErr(ErrTypeMismatch, "operator %s does not support %v operands", op, left.Kind())
	}

	switch op {
	case "===", "==":
		return Bool(cmp == 0), nil
	case "!==", "!=":
		return Bool(cmp != 0), nil
	case "<":
		return Bool(cmp < 0), nil
	case "<=":
		return Bool(cmp <= 0), nil
	case ">":
		return Bool(cmp > 0), nil
	default:
		return Bool(cmp >= 0), nil
	}
}

func (ev *evaluator) evalTernary(node *TernaryOp) (Value, error) {
	cond, err := ev.eval(node.Cond)
	if err != nil {
		return Null(), err
	}
	b, err := cond.AsBool()
	if err != nil {
		return Null(), evalErr(ErrTypeMismatch, "condition must be bool, got %v", cond.Kind())
	}

	// only the selected branch runs, so a guarded division never fails
	if b {
		return ev.eval(node.Then)
	}
	return ev.eval(node.Else)
}

func (ev *evaluator) evalCall(node *Call) (Value, error) {
	if !IsBuiltin(node.Name) {
		return Null(), &EvalError{
			Kind:       ErrUnknownFunction,
			Identifier: node.Name,
			Msg:        "unknown function " + node.Name,
		}
	}
	if len(node.Args) == 0 {
		return Null(), evalErr(ErrArity, "%s requires at least one argument", node.Name)
	}

	var result decimal.Decimal
	for i, arg := range node.Args {
		v, err := ev.eval(arg)
		if err != nil {
			return Null(), err
		}
		if v.Kind() != KindNumber {
			return Null(), evalErr(ErrTypeMismatch, "argument %d of %s must be a number, got %v", i+1, node.Name, v.Kind())
		}

		switch {
		case i == 0:
			result = v.numberVal
		case node.Name == FuncMax && v.numberVal.GreaterThan(result):
			result = v.numberVal
		case node.Name == FuncMin && v.numberVal.LessThan(result):
			result = v.numberVal
		}
	}
	return Number(result), nil
}
