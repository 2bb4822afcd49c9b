// Package formula compiles and evaluates ROOT-style tree formulas such as
// "pt_1>30 && abs(eta_1)<2.1" or "(q_1*q_2<0)*genWeight" over event
// records.
//
// Booleans and numbers mix freely, as they do in TTree::Draw: comparisons
// used as factors count as 0 or 1, and numbers used as conditions are true
// when non-zero.
package formula

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
)

// Env is one event record: branch name to float64 or []float64.
type Env = map[string]any

// Formula is a compiled expression bound to a set of branch names.
type Formula struct {
	src  string
	prog *vm.Program
	vm   vm.VM
}

var rootisms = strings.NewReplacer(
	"TMath::", "",
	"std::", "",
	"Max$(", "max(",
	"Min$(", "min(",
)

// Normalize rewrites ROOT-only spellings into the evaluator's dialect and
// trims surrounding whitespace.
func Normalize(src string) string {
	return strings.TrimSpace(rootisms.Replace(src))
}

// Compile compiles src against the given branch names. Referencing a
// branch that is not listed is an error. An empty src compiles to the
// constant 1.
func Compile(src string, branches map[string]any) (*Formula, error) {
	src = Normalize(src)
	if src == "" {
		src = "1"
	}
	env := make(Env, len(branches))
	for k, v := range branches {
		env[k] = v
	}
	opts := []expr.Option{
		expr.Env(env),
		expr.Patch(&mixer{}),
	}
	opts = append(opts, functions...)
	prog, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("formula: could not compile %q: %w", src, err)
	}
	return &Formula{src: src, prog: prog}, nil
}

// String returns the normalized source of the formula.
func (f *Formula) String() string { return f.src }

// Eval evaluates the formula for one event.
func (f *Formula) Eval(env Env) (float64, error) {
	out, err := f.vm.Run(f.prog, env)
	if err != nil {
		return 0, fmt.Errorf("formula: could not evaluate %q: %w", f.src, err)
	}
	return ToFloat(out)
}

// Bool evaluates the formula as a condition.
func (f *Formula) Bool(env Env) (bool, error) {
	v, err := f.Eval(env)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ToFloat converts an evaluation result to float64.
func ToFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, fmt.Errorf("formula: nil result")
	}
	return 0, fmt.Errorf("formula: unsupported result type %T", v)
}

func toBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	f, err := ToFloat(v)
	return f != 0, err
}

func unary(name string, fct func(float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s: want 1 argument, got %d", name, len(params))
		}
		x, err := ToFloat(params[0])
		if err != nil {
			return nil, err
		}
		return fct(x), nil
	})
}

func binary(name string, fct func(x, y float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("%s: want 2 arguments, got %d", name, len(params))
		}
		x, err := ToFloat(params[0])
		if err != nil {
			return nil, err
		}
		y, err := ToFloat(params[1])
		if err != nil {
			return nil, err
		}
		return fct(x, y), nil
	})
}

var functions = []expr.Option{
	unary("sqrt", math.Sqrt),
	unary("exp", math.Exp),
	unary("log", math.Log),
	unary("log10", math.Log10),
	unary("cos", math.Cos),
	unary("sin", math.Sin),
	unary("tan", math.Tan),
	unary("cosh", math.Cosh),
	unary("sinh", math.Sinh),
	unary("tanh", math.Tanh),
	unary("acos", math.Acos),
	unary("asin", math.Asin),
	unary("atan", math.Atan),
	unary("Abs", math.Abs),
	unary("Sqrt", math.Sqrt),
	unary("Exp", math.Exp),
	unary("Log", math.Log),
	unary("Cos", math.Cos),
	unary("Sin", math.Sin),
	expr.Function("Pi", func(...any) (any, error) { return math.Pi, nil }),
	binary("pow", math.Pow),
	binary("Power", math.Pow),
	binary("atan2", math.Atan2),
	binary("ATan2", math.Atan2),
	binary("hypot", math.Hypot),
	binary("fmod", math.Mod),
	expr.Function("b2f", func(params ...any) (any, error) {
		return ToFloat(params[0])
	}),
	expr.Function("f2b", func(params ...any) (any, error) {
		return toBool(params[0])
	}),
}

// mixer wraps operands so that conditions can be used as numbers and
// numbers as conditions.
type mixer struct{}

func (*mixer) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.BinaryNode:
		switch {
		case isArith(n.Operator):
			if isCondition(n.Left) {
				n.Left = call("b2f", n.Left)
			}
			if isCondition(n.Right) {
				n.Right = call("b2f", n.Right)
			}
		case isLogical(n.Operator):
			if !isCondition(n.Left) {
				n.Left = call("f2b", n.Left)
			}
			if !isCondition(n.Right) {
				n.Right = call("f2b", n.Right)
			}
		}
	case *ast.UnaryNode:
		switch n.Operator {
		case "!", "not":
			if !isCondition(n.Node) {
				n.Node = call("f2b", n.Node)
			}
		case "-", "+":
			if isCondition(n.Node) {
				n.Node = call("b2f", n.Node)
			}
		}
	case *ast.ConditionalNode:
		if !isCondition(n.Cond) {
			n.Cond = call("f2b", n.Cond)
		}
		if isCondition(n.Exp1) {
			n.Exp1 = call("b2f", n.Exp1)
		}
		if isCondition(n.Exp2) {
			n.Exp2 = call("b2f", n.Exp2)
		}
	}
}

func call(name string, arg ast.Node) ast.Node {
	n := &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: name},
		Arguments: []ast.Node{arg},
	}
	n.SetLocation(arg.Location())
	return n
}

func isArith(op string) bool {
	switch op {
	case "+", "-", "*", "/", "^", "**", "%":
		return true
	}
	return false
}

func isLogical(op string) bool {
	switch op {
	case "&&", "||", "and", "or":
		return true
	}
	return false
}

func isComparison(op string) bool {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

func isCondition(node ast.Node) bool {
	switch n := node.(type) {
	case *ast.BoolNode:
		return true
	case *ast.BinaryNode:
		return isComparison(n.Operator) || isLogical(n.Operator)
	case *ast.UnaryNode:
		return n.Operator == "!" || n.Operator == "not"
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			return id.Value == "f2b"
		}
	}
	return false
}
