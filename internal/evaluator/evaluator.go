// Package evaluator computes the value of a syntax tree by recursive
// post-order traversal.
package evaluator

import (
	"fmt"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/config"
)

// Evaluator walks a tree. It is not safe for concurrent use; create one per run.
type Evaluator struct {
	// MaxDepth caps the nesting depth of eval calls; <= 0 means config.DefaultMaxDepth.
	MaxDepth int

	evalDepth int
}

func New() *Evaluator {
	return &Evaluator{MaxDepth: config.DefaultMaxDepth}
}

// Evaluate runs the tree against a fresh environment.
func Evaluate(node ast.Node) (float64, error) {
	return New().Eval(node, NewEnvironment())
}

// Eval evaluates node, reading and writing bindings in env.
// A nil env gets a fresh one.
func (e *Evaluator) Eval(node ast.Node, env *Environment) (float64, error) {
	if env == nil {
		env = NewEnvironment()
	}
	e.evalDepth = 0
	return e.eval(node, env)
}

func (e *Evaluator) limit() int {
	if e.MaxDepth <= 0 {
		return config.DefaultMaxDepth
	}
	return e.MaxDepth
}

func (e *Evaluator) eval(node ast.Node, env *Environment) (float64, error) {
	// Check recursion depth to prevent Go stack overflow
	e.evalDepth++
	defer func() { e.evalDepth-- }()
	if e.evalDepth > e.limit() {
		return 0, &EvalError{Kind: DepthExceeded}
	}

	switch node := node.(type) {
	case *ast.Number:
		return node.Value, nil
	case *ast.BinaryOp:
		return e.evalBinaryOp(node, env)
	case *ast.Assign:
		val, err := e.eval(node.Expr, env)
		if err != nil {
			return 0, err
		}
		return env.Set(node.Identifier, val), nil
	case *ast.Identifier:
		val, ok := env.Get(node.Name)
		if !ok {
			return 0, &EvalError{Kind: UndefinedIdentifier, Name: node.Name}
		}
		return val, nil
	case nil:
		return 0, fmt.Errorf("cannot evaluate nil node")
	default:
		return 0, fmt.Errorf("unsupported node %T", node)
	}
}

func (e *Evaluator) evalBinaryOp(node *ast.BinaryOp, env *Environment) (float64, error) {
	left, err := e.eval(node.Left, env)
	if err != nil {
		return 0, err
	}
	right, err := e.eval(node.Right, env)
	if err != nil {
		return 0, err
	}
	result, err := Apply(node.Kind, left, right)
	if err != nil {
		if kind, ok := KindOf(err); ok {
			return 0, &EvalError{Kind: kind, Op: node.Kind}
		}
		return 0, err
	}
	return result, nil
}
