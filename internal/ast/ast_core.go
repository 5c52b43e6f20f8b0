// Package ast defines the syntax tree shared by the tree-walk evaluator and
// the bytecode generator.
package ast

import (
	"fmt"
	"math"
)

// Node is the base interface for all syntax tree nodes.
// The set of implementations is closed: Number, BinaryOp, Assign and Identifier.
type Node interface {
	Accept(v Visitor)
	node()
}

// OpKind identifies the arithmetic operator of a BinaryOp.
type OpKind byte

const (
	Add OpKind = iota + 1
	Subtract
	Multiply
	Divide
	Exponentiate
)

// OpKinds lists every operator in opcode order.
var OpKinds = []OpKind{Add, Subtract, Multiply, Divide, Exponentiate}

var opNames = map[OpKind]string{
	Add:          "Add",
	Subtract:     "Subtract",
	Multiply:     "Multiply",
	Divide:       "Divide",
	Exponentiate: "Exponentiate",
}

var opSymbols = map[OpKind]string{
	Add:          "+",
	Subtract:     "-",
	Multiply:     "*",
	Divide:       "/",
	Exponentiate: "**",
}

// String returns the capitalized operation name used by the tree codecs.
func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OpKind(%d)", byte(k))
}

// Symbol returns the infix spelling of the operator.
func (k OpKind) Symbol() string {
	if sym, ok := opSymbols[k]; ok {
		return sym
	}
	return "?"
}

// Valid reports whether k is one of the five arithmetic operators.
func (k OpKind) Valid() bool {
	_, ok := opNames[k]
	return ok
}

// OpKindByName looks up an operator by its capitalized name ("Add", "Divide", ...).
func OpKindByName(name string) (OpKind, bool) {
	for k, n := range opNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Equal reports whether two trees are structurally identical.
// Number values are compared bit-for-bit, so NaN equals NaN and 0 differs from -0.
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case *Number:
		b, ok := b.(*Number)
		return ok && math.Float64bits(a.Value) == math.Float64bits(b.Value)
	case *BinaryOp:
		b, ok := b.(*BinaryOp)
		return ok && a.Kind == b.Kind && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)
	case *Assign:
		b, ok := b.(*Assign)
		return ok && a.Identifier == b.Identifier && Equal(a.Expr, b.Expr)
	case *Identifier:
		b, ok := b.(*Identifier)
		return ok && a.Name == b.Name
	case nil:
		return b == nil
	default:
		return false
	}
}

// Clone returns a deep copy of the tree. A subtree used in two places must be
// cloned so that every node keeps exactly one parent.
func Clone(n Node) Node {
	switch n := n.(type) {
	case *Number:
		return &Number{Value: n.Value}
	case *BinaryOp:
		return &BinaryOp{Kind: n.Kind, Left: Clone(n.Left), Right: Clone(n.Right)}
	case *Assign:
		return &Assign{Identifier: n.Identifier, Expr: Clone(n.Expr)}
	case *Identifier:
		return &Identifier{Name: n.Name}
	default:
		return nil
	}
}

// Size returns the number of nodes in the tree.
func Size(n Node) int {
	count := 0
	Inspect(n, func(Node) { count++ })
	return count
}

// Depth returns the height of the tree; a lone leaf has depth 1.
func Depth(n Node) int {
	switch n := n.(type) {
	case *BinaryOp:
		return 1 + max(Depth(n.Left), Depth(n.Right))
	case *Assign:
		return 1 + Depth(n.Expr)
	case nil:
		return 0
	default:
		return 1
	}
}
