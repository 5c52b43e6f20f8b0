package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble returns a human-readable listing of the stream, one
// instruction per line. names, when given, annotates variable slots.
// A truncated or unknown instruction ends the listing.
func Disassemble(code []byte, name string, names []string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < len(code) {
		next, ok := disassembleInstruction(&sb, code, offset, names)
		if !ok {
			break
		}
		offset = next
	}

	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, code []byte, offset int, names []string) (int, bool) {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	op := Opcode(code[offset])
	if !op.Valid() {
		sb.WriteString(fmt.Sprintf("unknown 0x%02x\n", byte(op)))
		return offset + 1, false
	}

	operand := offset + 1
	if remaining := len(code) - operand; remaining < op.OperandSize() {
		sb.WriteString(fmt.Sprintf("%-12s <truncated: %d of %d bytes>\n", op, remaining, op.OperandSize()))
		return len(code), false
	}

	switch op {
	case OP_PUSH:
		return pushInstruction(sb, code, operand), true
	case OP_STORE, OP_LOAD:
		return slotInstruction(sb, op, code, operand, names), true
	default:
		return simpleInstruction(sb, op, operand), true
	}
}

func simpleInstruction(sb *strings.Builder, op Opcode, next int) int {
	sb.WriteString(op.String() + "\n")
	return next
}

func pushInstruction(sb *strings.Builder, code []byte, operand int) int {
	v := readFloat(code, operand)
	sb.WriteString(fmt.Sprintf("%-12s %s\n", OP_PUSH, strconv.FormatFloat(v, 'g', -1, 64)))
	return operand + FloatOperandSize
}

func slotInstruction(sb *strings.Builder, op Opcode, code []byte, operand int, names []string) int {
	slot := int(readSlot(code, operand))
	if slot < len(names) {
		sb.WriteString(fmt.Sprintf("%-12s %d (%s)\n", op, slot, names[slot]))
	} else {
		sb.WriteString(fmt.Sprintf("%-12s %d\n", op, slot))
	}
	return operand + SlotOperandSize
}
