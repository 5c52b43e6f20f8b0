// Package vm translates syntax trees into a flat byte stream and executes
// that stream on an operand stack.
package vm

import (
	"fmt"

	"github.com/funvibe/walc/internal/ast"
)

// Opcode represents a single VM instruction
type Opcode byte

const (
	OP_PUSH Opcode = 0x00 // Push the following 8-byte little-endian float64
	OP_ADD  Opcode = 0x01 // +
	OP_SUB  Opcode = 0x02 // -
	OP_MUL  Opcode = 0x03 // *
	OP_DIV  Opcode = 0x04 // /
	OP_POW  Opcode = 0x05 // **

	// Variables: a 2-byte little-endian slot follows the opcode
	OP_STORE Opcode = 0x06 // Bind slot to the top of stack, leaving it in place
	OP_LOAD  Opcode = 0x07 // Push the value bound to slot
)

// Operand sizes in bytes
const (
	FloatOperandSize = 8
	SlotOperandSize  = 2
)

// MaxSlots is the number of distinct variables a stream can address.
const MaxSlots = 1 << 16

// OpcodeNames maps opcodes to their string names (for disassembly)
var OpcodeNames = map[Opcode]string{
	OP_PUSH:  "push",
	OP_ADD:   "add",
	OP_SUB:   "subtract",
	OP_MUL:   "multiply",
	OP_DIV:   "divide",
	OP_POW:   "exponentiate",
	OP_STORE: "store",
	OP_LOAD:  "load",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", byte(op))
}

// Valid reports whether op is a known instruction.
func (op Opcode) Valid() bool {
	_, ok := OpcodeNames[op]
	return ok
}

// OperandSize returns the number of operand bytes following op.
func (op Opcode) OperandSize() int {
	switch op {
	case OP_PUSH:
		return FloatOperandSize
	case OP_STORE, OP_LOAD:
		return SlotOperandSize
	}
	return 0
}

var binaryOps = map[ast.OpKind]Opcode{
	ast.Add:          OP_ADD,
	ast.Subtract:     OP_SUB,
	ast.Multiply:     OP_MUL,
	ast.Divide:       OP_DIV,
	ast.Exponentiate: OP_POW,
}

// OpcodeFor returns the instruction for an arithmetic operator.
func OpcodeFor(kind ast.OpKind) (Opcode, bool) {
	op, ok := binaryOps[kind]
	return op, ok
}

// Kind returns the arithmetic operator of a binary instruction.
func (op Opcode) Kind() (ast.OpKind, bool) {
	for kind, o := range binaryOps {
		if o == op {
			return kind, true
		}
	}
	return 0, false
}
