package vm

import (
	"errors"
	"fmt"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/config"
)

// ErrTooManySlots is returned when a tree names more variables than a slot operand can address.
var ErrTooManySlots = errors.New("too many variables")

// Program is a compiled stream plus the slot table it was generated with.
// Names[i] is the identifier bound to slot i.
type Program struct {
	Code  []byte
	Names []string
}

// Compiler emits instructions in post-order: operands before operators.
type Compiler struct {
	// MaxDepth caps tree nesting the same way the tree-walk evaluator does;
	// <= 0 means config.DefaultMaxDepth.
	MaxDepth int

	chunk *Chunk
	slots map[string]uint16
	names []string
	depth int
}

func NewCompiler() *Compiler {
	return &Compiler{
		MaxDepth: config.DefaultMaxDepth,
		chunk:    NewChunk(),
		slots:    make(map[string]uint16),
	}
}

// Compile translates the tree. Slots are numbered by first appearance in
// post-order. Arithmetic is not checked: 1 / 0 compiles and fails at run time.
func Compile(tree ast.Node) (*Program, error) {
	return CompileDepth(tree, config.DefaultMaxDepth)
}

// CompileDepth is Compile with an explicit nesting limit. A tree deeper than
// maxDepth fails with ErrDepthExceeded.
func CompileDepth(tree ast.Node, maxDepth int) (*Program, error) {
	c := NewCompiler()
	c.MaxDepth = maxDepth
	if err := c.compile(tree); err != nil {
		return nil, err
	}
	return &Program{Code: c.chunk.Code, Names: c.names}, nil
}

// Generate translates the tree to a byte stream. It is deterministic and
// returns nil only for trees Compile rejects (nil children, unknown
// operators, more than MaxSlots variables, nesting past the default depth
// limit), which the VM then rejects too.
func Generate(tree ast.Node) []byte {
	p, err := Compile(tree)
	if err != nil {
		return nil
	}
	return p.Code
}

func (c *Compiler) limit() int {
	if c.MaxDepth <= 0 {
		return config.DefaultMaxDepth
	}
	return c.MaxDepth
}

func (c *Compiler) compile(node ast.Node) error {
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > c.limit() {
		return fmt.Errorf("%w (limit %d)", ErrDepthExceeded, c.limit())
	}

	switch node := node.(type) {
	case *ast.Number:
		c.chunk.WritePush(node.Value)
	case *ast.BinaryOp:
		op, ok := OpcodeFor(node.Kind)
		if !ok {
			return fmt.Errorf("unknown operator: %s", node.Kind)
		}
		if err := c.compile(node.Left); err != nil {
			return err
		}
		if err := c.compile(node.Right); err != nil {
			return err
		}
		c.chunk.WriteOp(op)
	case *ast.Assign:
		if err := c.compile(node.Expr); err != nil {
			return err
		}
		slot, err := c.slot(node.Identifier)
		if err != nil {
			return err
		}
		c.chunk.WriteSlot(OP_STORE, slot)
	case *ast.Identifier:
		slot, err := c.slot(node.Name)
		if err != nil {
			return err
		}
		c.chunk.WriteSlot(OP_LOAD, slot)
	case nil:
		return fmt.Errorf("cannot compile nil node")
	default:
		return fmt.Errorf("unsupported node %T", node)
	}
	return nil
}

func (c *Compiler) slot(name string) (uint16, error) {
	if s, ok := c.slots[name]; ok {
		return s, nil
	}
	if len(c.names) >= MaxSlots {
		return 0, fmt.Errorf("%w: %q would need slot %d", ErrTooManySlots, name, len(c.names))
	}
	s := uint16(len(c.names))
	c.slots[name] = s
	c.names = append(c.names, name)
	return s, nil
}
