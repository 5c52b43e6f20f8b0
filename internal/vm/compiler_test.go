package vm

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/config"
	"github.com/funvibe/walc/internal/evaluator"
)

func num(v float64) ast.Node { return ast.NewNumber(v) }

func bin(k ast.OpKind, l, r ast.Node) ast.Node { return ast.NewBinary(k, l, r) }

func TestGenerateLiteralExample(t *testing.T) {
	got := Generate(bin(ast.Subtract, num(3.1), num(2)))
	want := []byte{
		0x00, 0xcd, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0x08, 0x40,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x40,
		0x02,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Generate(3.1 - 2) = % x\nwant % x", got, want)
	}
}

func TestGenerateOpcodes(t *testing.T) {
	tests := []struct {
		kind ast.OpKind
		op   byte
	}{
		{ast.Add, 0x01},
		{ast.Subtract, 0x02},
		{ast.Multiply, 0x03},
		{ast.Divide, 0x04},
		{ast.Exponentiate, 0x05},
	}
	for _, tt := range tests {
		code := Generate(bin(tt.kind, num(1), num(2)))
		if len(code) != 19 {
			t.Fatalf("%s: stream length %d, want 19", tt.kind, len(code))
		}
		if code[0] != 0x00 || code[9] != 0x00 || code[18] != tt.op {
			t.Errorf("%s: stream % x, want push push 0x%02x", tt.kind, code, tt.op)
		}
	}
}

func TestGeneratePostOrder(t *testing.T) {
	// (1 + 2) * (3 - 4)
	tree := bin(ast.Multiply, bin(ast.Add, num(1), num(2)), bin(ast.Subtract, num(3), num(4)))

	var ops []Opcode
	code := Generate(tree)
	for i := 0; i < len(code); i += 1 + Opcode(code[i]).OperandSize() {
		ops = append(ops, Opcode(code[i]))
	}
	want := []Opcode{OP_PUSH, OP_PUSH, OP_ADD, OP_PUSH, OP_PUSH, OP_SUB, OP_MUL}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("opcodes = %v, want %v", ops, want)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	tree := ast.NewAssign("x", bin(ast.Add, ast.NewAssign("y", num(1)), ast.NewIdentifier("y")))
	first := Generate(tree)
	for i := 0; i < 10; i++ {
		if !bytes.Equal(first, Generate(ast.Clone(tree))) {
			t.Fatalf("Generate is not deterministic")
		}
	}
}

func TestCompileSlots(t *testing.T) {
	// x = (y = 2) + y * x0 ... slots follow first appearance in post-order
	tree := ast.NewAssign("x", bin(ast.Add,
		ast.NewAssign("y", num(2)),
		bin(ast.Multiply, ast.NewIdentifier("y"), ast.NewIdentifier("z"))))

	p, err := Compile(tree)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if want := []string{"y", "z", "x"}; !reflect.DeepEqual(p.Names, want) {
		t.Errorf("Names = %v, want %v", p.Names, want)
	}
	if !reflect.DeepEqual(p.Names, ast.Identifiers(tree)) {
		t.Errorf("slot order differs from ast.Identifiers")
	}

	c := NewChunk()
	c.WritePush(2)
	c.WriteSlot(OP_STORE, 0)
	c.WriteSlot(OP_LOAD, 0)
	c.WriteSlot(OP_LOAD, 1)
	c.WriteOp(OP_MUL)
	c.WriteOp(OP_ADD)
	c.WriteSlot(OP_STORE, 2)
	if !bytes.Equal(p.Code, c.Code) {
		t.Errorf("Code = % x\nwant % x", p.Code, c.Code)
	}
}

func TestVariableFreeStreamsUseArithmeticOpcodesOnly(t *testing.T) {
	code := Generate(bin(ast.Exponentiate, num(2), bin(ast.Divide, num(9), num(3))))
	for i := 0; i < len(code); i += 1 + Opcode(code[i]).OperandSize() {
		if op := Opcode(code[i]); op > OP_POW {
			t.Errorf("unexpected opcode %s at %d", op, i)
		}
	}
}

func TestCompileRejectsMalformedTrees(t *testing.T) {
	trees := []ast.Node{
		nil,
		bin(ast.Add, num(1), nil),
		bin(ast.OpKind(0), num(1), num(2)),
	}
	for _, tree := range trees {
		if _, err := Compile(tree); err == nil {
			t.Errorf("Compile(%s) should fail", ast.Format(tree))
		}
		if code := Generate(tree); code != nil {
			t.Errorf("Generate(%s) = % x, want nil", ast.Format(tree), code)
		}
	}
}

func TestCompileTooManySlots(t *testing.T) {
	c := NewCompiler()
	c.names = make([]string, MaxSlots)
	if _, err := c.slot("overflow"); !errors.Is(err, ErrTooManySlots) {
		t.Errorf("error = %v, want ErrTooManySlots", err)
	}
}

func TestCompileDepthLimit(t *testing.T) {
	chain := func(depth int) ast.Node {
		var n ast.Node = num(1)
		for d := 1; d < depth; d++ {
			n = bin(ast.Add, n, num(1))
		}
		return n
	}

	tests := []struct {
		name     string
		maxDepth int
		depth    int
		wantErr  bool
	}{
		{"at limit", 5, 5, false},
		{"past limit", 5, 6, true},
		{"default at limit", 0, config.DefaultMaxDepth, false},
		{"default past limit", 0, config.DefaultMaxDepth + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileDepth(chain(tt.depth), tt.maxDepth)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("CompileDepth: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrDepthExceeded) || !errors.Is(err, evaluator.ErrDepthExceeded) {
				t.Errorf("error = %v, want depth exceeded", err)
			}
		})
	}

	if Generate(chain(config.DefaultMaxDepth+1)) != nil {
		t.Errorf("Generate past the default limit should return nil")
	}
	wrapped := ast.NewAssign("x", chain(5))
	if _, err := CompileDepth(wrapped, 5); !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("assignment adds a level: error = %v", err)
	}
}
