package vm

import (
	"testing"

	"github.com/funvibe/walc/internal/ast"
)

func TestDisassemble(t *testing.T) {
	p, err := Compile(ast.NewAssign("x", bin(ast.Subtract, num(3.1), num(2))))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	got := Disassemble(p.Code, "x", p.Names)
	want := `== x ==
0000 push         3.1
0009 push         2
0018 subtract
0019 store        0 (x)
`
	if got != want {
		t.Errorf("Disassemble =\n%s\nwant\n%s", got, want)
	}
}

func TestDisassembleStopsOnBadInstruction(t *testing.T) {
	tests := []struct {
		code []byte
		want string
	}{
		{[]byte{0x01, 0xee, 0x01}, "== t ==\n0000 add\n0001 unknown 0xee\n"},
		{[]byte{0x00, 0x01}, "== t ==\n0000 push         <truncated: 1 of 8 bytes>\n"},
		{[]byte{0x07, 0x05, 0x00}, "== t ==\n0000 load         5\n"},
	}
	for _, tt := range tests {
		if got := Disassemble(tt.code, "t", nil); got != tt.want {
			t.Errorf("Disassemble(% x) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
