package codec

import (
	"fmt"
	"math"

	"github.com/funvibe/walc/internal/ast"
)

// wireNode is the tagged-object form of a node: exactly one field is set and
// its key names the variant.
type wireNode struct {
	Number       *wireNumber     `json:"Number,omitempty" yaml:"Number,omitempty" cbor:"Number,omitempty"`
	Add          *wireBinary     `json:"Add,omitempty" yaml:"Add,omitempty" cbor:"Add,omitempty"`
	Subtract     *wireBinary     `json:"Subtract,omitempty" yaml:"Subtract,omitempty" cbor:"Subtract,omitempty"`
	Multiply     *wireBinary     `json:"Multiply,omitempty" yaml:"Multiply,omitempty" cbor:"Multiply,omitempty"`
	Divide       *wireBinary     `json:"Divide,omitempty" yaml:"Divide,omitempty" cbor:"Divide,omitempty"`
	Exponentiate *wireBinary     `json:"Exponentiate,omitempty" yaml:"Exponentiate,omitempty" cbor:"Exponentiate,omitempty"`
	Assign       *wireAssign     `json:"Assign,omitempty" yaml:"Assign,omitempty" cbor:"Assign,omitempty"`
	Identifier   *wireIdentifier `json:"Identifier,omitempty" yaml:"Identifier,omitempty" cbor:"Identifier,omitempty"`
}

type wireNumber struct {
	Value *float64 `json:"value" yaml:"value" cbor:"value"`
}

type wireBinary struct {
	Left  *wireNode `json:"left" yaml:"left" cbor:"left"`
	Right *wireNode `json:"right" yaml:"right" cbor:"right"`
}

type wireAssign struct {
	Identifier string    `json:"identifier" yaml:"identifier" cbor:"identifier"`
	Expr       *wireNode `json:"expr" yaml:"expr" cbor:"expr"`
}

type wireIdentifier struct {
	Name string `json:"name" yaml:"name" cbor:"name"`
}

func (w *wireNode) binarySlot(kind ast.OpKind) **wireBinary {
	switch kind {
	case ast.Add:
		return &w.Add
	case ast.Subtract:
		return &w.Subtract
	case ast.Multiply:
		return &w.Multiply
	case ast.Divide:
		return &w.Divide
	case ast.Exponentiate:
		return &w.Exponentiate
	}
	return nil
}

func toWire(n ast.Node, depth int) (*wireNode, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	switch n := n.(type) {
	case *ast.Number:
		v := n.Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %v", ErrNonFiniteLeaf, v)
		}
		return &wireNode{Number: &wireNumber{Value: &v}}, nil
	case *ast.BinaryOp:
		w := &wireNode{}
		slot := w.binarySlot(n.Kind)
		if slot == nil {
			return nil, fmt.Errorf("unknown operator %s", n.Kind)
		}
		left, err := toWire(n.Left, depth+1)
		if err != nil {
			return nil, err
		}
		right, err := toWire(n.Right, depth+1)
		if err != nil {
			return nil, err
		}
		*slot = &wireBinary{Left: left, Right: right}
		return w, nil
	case *ast.Assign:
		expr, err := toWire(n.Expr, depth+1)
		if err != nil {
			return nil, err
		}
		return &wireNode{Assign: &wireAssign{Identifier: n.Identifier, Expr: expr}}, nil
	case *ast.Identifier:
		return &wireNode{Identifier: &wireIdentifier{Name: n.Name}}, nil
	case nil:
		return nil, fmt.Errorf("nil node")
	default:
		return nil, fmt.Errorf("unsupported node %T", n)
	}
}

func fromWire(w *wireNode, depth int) (ast.Node, error) {
	if w == nil {
		return nil, fmt.Errorf("missing node")
	}
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	variants := 0
	var node ast.Node
	var err error

	if w.Number != nil {
		variants++
		if w.Number.Value == nil {
			return nil, fmt.Errorf("Number: missing value")
		}
		if v := *w.Number.Value; math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("Number: %w: %v", ErrNonFiniteLeaf, v)
		}
		node = ast.NewNumber(*w.Number.Value)
	}
	for _, kind := range ast.OpKinds {
		b := *w.binarySlot(kind)
		if b == nil {
			continue
		}
		variants++
		if node, err = binaryFromWire(kind, b, depth); err != nil {
			return nil, err
		}
	}
	if w.Assign != nil {
		variants++
		if w.Assign.Identifier == "" {
			return nil, fmt.Errorf("Assign: missing identifier")
		}
		expr, err := fromWire(w.Assign.Expr, depth+1)
		if err != nil {
			return nil, fmt.Errorf("Assign.expr: %w", err)
		}
		node = ast.NewAssign(w.Assign.Identifier, expr)
	}
	if w.Identifier != nil {
		variants++
		if w.Identifier.Name == "" {
			return nil, fmt.Errorf("Identifier: missing name")
		}
		node = ast.NewIdentifier(w.Identifier.Name)
	}

	switch variants {
	case 0:
		return nil, fmt.Errorf("node has no variant key")
	case 1:
		return node, nil
	default:
		return nil, fmt.Errorf("node has %d variant keys, want exactly one", variants)
	}
}

func binaryFromWire(kind ast.OpKind, b *wireBinary, depth int) (ast.Node, error) {
	left, err := fromWire(b.Left, depth+1)
	if err != nil {
		return nil, fmt.Errorf("%s.left: %w", kind, err)
	}
	right, err := fromWire(b.Right, depth+1)
	if err != nil {
		return nil, fmt.Errorf("%s.right: %w", kind, err)
	}
	return ast.NewBinary(kind, left, right), nil
}
