// Package walc evaluates arithmetic syntax trees two ways: by walking the
// tree, or by translating it to a byte stream and running that on a stack
// machine. Both ways produce bit-identical results.
package walc

import (
	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/codec"
	"github.com/funvibe/walc/internal/evaluator"
	"github.com/funvibe/walc/internal/vm"
)

// Node is a syntax tree node.
type Node = ast.Node

// Op is a binary arithmetic operator.
type Op = ast.OpKind

const (
	Add          = ast.Add
	Subtract     = ast.Subtract
	Multiply     = ast.Multiply
	Divide       = ast.Divide
	Exponentiate = ast.Exponentiate
)

// Tree encodings accepted by DecodeTree and EncodeTree.
const (
	JSON = string(codec.JSON)
	YAML = string(codec.YAML)
	CBOR = string(codec.CBOR)
)

func Number(v float64) Node               { return ast.NewNumber(v) }
func Binary(op Op, left, right Node) Node { return ast.NewBinary(op, left, right) }
func Assign(name string, expr Node) Node  { return ast.NewAssign(name, expr) }
func Identifier(name string) Node         { return ast.NewIdentifier(name) }
func Format(tree Node) string             { return ast.Format(tree) }
func Equal(a, b Node) bool                { return ast.Equal(a, b) }

// Evaluate computes the value of tree by walking it.
func Evaluate(tree Node) (float64, error) {
	return evaluator.Evaluate(tree)
}

// EvaluateWith evaluates tree with env as its variables. Identifiers read
// from env and assignments write back to it. A nil env behaves like Evaluate.
func EvaluateWith(tree Node, env map[string]float64) (float64, error) {
	if env == nil {
		return Evaluate(tree)
	}
	e := evaluator.NewEnvironment()
	for name, v := range env {
		e.Set(name, v)
	}
	v, err := evaluator.New().Eval(tree, e)
	for name, val := range e.Snapshot() {
		env[name] = val
	}
	return v, err
}

// Generate translates tree into a byte stream for Interpret.
func Generate(tree Node) ([]byte, error) {
	program, err := vm.Compile(tree)
	if err != nil {
		return nil, err
	}
	return program.Code, nil
}

// Interpret runs a byte stream and returns the single value it leaves.
func Interpret(code []byte) (float64, error) {
	return vm.Interpret(code)
}

// DecodeTree parses a tree in the named encoding ("json", "yaml" or "cbor").
func DecodeTree(format string, data []byte) (Node, error) {
	f, err := codec.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return codec.Decode(f, data)
}

// EncodeTree renders tree in the named encoding.
func EncodeTree(format string, tree Node) ([]byte, error) {
	f, err := codec.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return codec.Encode(f, tree)
}
